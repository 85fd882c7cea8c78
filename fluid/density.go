package fluid

import (
	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
)

//densityPayload - per ray accumulator
type densityPayload struct {
	density float32
}

//newDensityProgram - one ray per particle. The intersection shader reports candidates
//inside the smoothing radius, any-hit sums their poly6 contribution and ignores the hit
//so traversal keeps going. The particle's own box is always hit, so self density is
//included.
func newDensityProgram(store *ParticleStore, params *gpu.Buffer[SimulationParameters]) *gpu.RayTracingProgram {
	particles := store.Particles.Data()
	densities := store.Densities.Data()
	constants := params.Data()

	return &gpu.RayTracingProgram{
		ProgramName: "density",
		RayGen: func(d gpu.DispatchRays) {
			p := &constants[0]
			payload := densityPayload{}
			d.TraceRay(NeighborProbe(particles[d.Index].Position, p.SmoothingRadius, p.AABBShrink), &payload)
			densities[d.Index] = payload.density
		},
		Hit: gpu.HitGroup{
			Name: "density gather",
			Intersection: func(hit gpu.Hit) (float32, bool) {
				p := &constants[0]
				r2 := vector.LengthSq(vector.Sub(particles[hit.RayIndex].Position, particles[hit.Primitive].Position))
				return hit.Ray.TMin, r2 < p.SmoothingRadius*p.SmoothingRadius
			},
			AnyHit: func(payload any, hit gpu.Hit) gpu.HitAction {
				p := &constants[0]
				acc := payload.(*densityPayload)
				kernel := InitSmoothing(p.SmoothingRadius)
				r2 := vector.LengthSq(vector.Sub(particles[hit.RayIndex].Position, particles[hit.Primitive].Position))
				acc.density += p.Mass * kernel.Poly6(r2) * p.DensityCoef
				return gpu.IgnoreHit
			},
		},
		MaxRecursionDepth: 1,
	}
}

//recordDensity - density[i] for every particle; the index must be rebuilt this frame
func (s *Simulation) recordDensity(cl *gpu.CommandList) {
	cl.DispatchRays(s.shaders.RayTracing(gpu.KernelDensity), s.index.TLAS(), s.store.Count, gpu.Bindings{
		Reads:  []gpu.Bindable{s.store.Particles, s.params},
		Writes: []gpu.Bindable{s.store.Densities},
	})
}
