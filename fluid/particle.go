package fluid

//Particle state lives in device buffers owned by the Simulation. The Integration pass
//is the only writer of the particle and AABB buffers; Density and Force only read them.
import (
	"fmt"

	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
)

//Particle - position and velocity only; density and acceleration are per frame arrays
type Particle struct {
	Position vector.Vec32
	Velocity vector.Vec32
}

//ParticleAABB - the procedural primitive the spatial index is built over
type ParticleAABB = gpu.AABB

//ComputeAABB - position +/- h, with the Y half extent shrunk to shrink*h.
//shrink is in (0, 1]; 1 gives the isotropic box.
func ComputeAABB(pos vector.Vec32, h float32, shrink float32) ParticleAABB {
	ext := vector.Vec32{h, h * shrink, h}
	return ParticleAABB{Min: vector.Sub(pos, ext), Max: vector.Add(pos, ext)}
}

//NeighborProbe - the query traced for a particle. The Y segment covers the part of the
//smoothing radius removed from the boxes, so every particle with |dy| <= h is reported.
//With no shrink the probe degenerates to a point query.
func NeighborProbe(pos vector.Vec32, h float32, shrink float32) gpu.Ray {
	half := h - h*shrink
	if half <= 0 {
		return gpu.Ray{Origin: pos}
	}
	origin := pos
	origin[1] -= half
	return gpu.Ray{
		Origin:    origin,
		Direction: vector.Vec32{0, 1, 0},
		TMin:      0,
		TMax:      2 * half,
	}
}

//ParticleStore - device resident per particle arrays, all of length Count
type ParticleStore struct {
	Count         int
	Particles     *gpu.Buffer[Particle]
	AABBs         *gpu.Buffer[ParticleAABB]
	Densities     *gpu.Buffer[float32]
	Accelerations *gpu.Buffer[vector.Vec32]
}

//NewParticleStore - allocates zeroed arrays for count particles
func NewParticleStore(ctx *gpu.Context, count int) (*ParticleStore, error) {
	var err error
	s := &ParticleStore{Count: count}

	if s.Particles, err = gpu.NewBuffer[Particle](ctx, "particles", count); err != nil {
		return nil, fmt.Errorf("particle store: %w", err)
	}
	if s.AABBs, err = gpu.NewBuffer[ParticleAABB](ctx, "particle aabbs", count); err != nil {
		return nil, fmt.Errorf("particle store: %w", err)
	}
	if s.Densities, err = gpu.NewBuffer[float32](ctx, "densities", count); err != nil {
		return nil, fmt.Errorf("particle store: %w", err)
	}
	if s.Accelerations, err = gpu.NewBuffer[vector.Vec32](ctx, "accelerations", count); err != nil {
		return nil, fmt.Errorf("particle store: %w", err)
	}
	return s, nil
}

//Seed - uploads initial positions at rest along with their bounding boxes
func (s *ParticleStore) Seed(positions []vector.Vec32, h float32, shrink float32) error {
	if len(positions) != s.Count {
		return fmt.Errorf("seeding %d particles into a store of %d", len(positions), s.Count)
	}
	particles := s.Particles.Data()
	aabbs := s.AABBs.Data()
	for i, p := range positions {
		particles[i] = Particle{Position: p}
		aabbs[i] = ComputeAABB(p, h, shrink)
	}
	return nil
}
