package fluid

import (
	"errors"
	"fmt"

	"diesel.com/raysph/geometry"
	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
)

const (
	//MaxTimeStep - larger requested steps are clamped
	MaxTimeStep = 0.005

	//DefaultParticleCount - 64k particles
	DefaultParticleCount = 65536

	//IntegrateGroupSize - particles per integration thread group
	IntegrateGroupSize = 256
)

var ErrInvalidConfig = errors.New("fluid: invalid configuration")

//Config - physical constants the parameter block is derived from. A zero Mass derives
//the particle mass from the rest density: one lattice cell of InitialSpacing per particle,
//or an even share of the container volume when the spacing is zero.
type Config struct {
	SmoothingRadius   float32
	RestDensity       float32
	PressureStiffness float32
	Viscosity         float32
	WallStiffness     float32
	WallDamping       float32
	Gravity           float32
	TimeStep          float32
	Mass              float32
	//AABBShrink - fraction of h kept on the Y extent of particle boxes
	AABBShrink float32
	//InitialSpacing - lattice spacing of the seeded block, zero fills the container evenly
	InitialSpacing float32
	BuildFlags     gpu.BuildFlags
}

//DefaultConfig - reference constants
func DefaultConfig() Config {
	return Config{
		SmoothingRadius:   1.0 / 50.0,
		RestDensity:       1000,
		//the equation of state is linear in the absolute density difference, stiff
		//values blow the block apart at MaxTimeStep
		PressureStiffness: 0.2,
		Viscosity:         0.1,
		WallStiffness:     3000,
		WallDamping:       50,
		Gravity:           9.8,
		TimeStep:          MaxTimeStep,
		AABBShrink:        1,
		InitialSpacing:    1.0 / 50.0 / 2,
		BuildFlags:        gpu.BuildPreferFastBuild,
	}
}

//Validate - reports the first out of range constant
func (c *Config) Validate() error {
	switch {
	case c.SmoothingRadius <= 0:
		return fmt.Errorf("%w: smoothing radius %g must be positive", ErrInvalidConfig, c.SmoothingRadius)
	case c.RestDensity <= 0:
		return fmt.Errorf("%w: rest density %g must be positive", ErrInvalidConfig, c.RestDensity)
	case c.PressureStiffness < 0 || c.Viscosity < 0:
		return fmt.Errorf("%w: stiffness %g and viscosity %g must not be negative",
			ErrInvalidConfig, c.PressureStiffness, c.Viscosity)
	case c.WallStiffness < 0 || c.WallDamping < 0:
		return fmt.Errorf("%w: wall stiffness %g and damping %g must not be negative",
			ErrInvalidConfig, c.WallStiffness, c.WallDamping)
	case c.TimeStep <= 0:
		return fmt.Errorf("%w: timestep %g must be positive", ErrInvalidConfig, c.TimeStep)
	case c.Mass < 0:
		return fmt.Errorf("%w: mass %g must not be negative", ErrInvalidConfig, c.Mass)
	case c.AABBShrink <= 0 || c.AABBShrink > 1:
		return fmt.Errorf("%w: aabb shrink %g must be in (0, 1]", ErrInvalidConfig, c.AABBShrink)
	case c.InitialSpacing < 0:
		return fmt.Errorf("%w: initial spacing %g must not be negative", ErrInvalidConfig, c.InitialSpacing)
	}
	return nil
}

//SimulationParameters - the constant block every pass reads. Static fields are written
//once by the host at Initialize; Version is bumped on each host write.
type SimulationParameters struct {
	ParticleCount        uint32
	SmoothingRadius      float32
	PressureStiffness    float32
	RestDensity          float32
	Mass                 float32
	Viscosity            float32
	DensityCoef          float32
	PressureGradCoef     float32
	ViscosityLaplaceCoef float32
	WallStiffness        float32
	WallDamping          float32
	AABBShrink           float32
	//Gravity - default acceleration, each frame slot carries its own copy
	Gravity   vector.Vec32
	TimeStep  float32
	NumPlanes uint32
	Planes    [geometry.MaxPlanes]vector.Vec4
	Version   uint64
}

//Plane - i-th boundary plane
func (p *SimulationParameters) Plane(i int) geometry.Plane {
	v := p.Planes[i]
	return geometry.Plane{Normal: vector.Vec32{v[0], v[1], v[2]}, Offset: v[3]}
}

//DeriveParameters - fills the parameter block from the configuration, the particle count
//and the container the particles live in
func DeriveParameters(count int, container geometry.Box, cfg Config) (SimulationParameters, error) {
	if count <= 0 {
		return SimulationParameters{}, fmt.Errorf("%w: particle count %d", ErrInvalidConfig, count)
	}
	if err := cfg.Validate(); err != nil {
		return SimulationParameters{}, err
	}
	volume := container.Volume()
	if volume <= 0 {
		return SimulationParameters{}, fmt.Errorf("%w: container volume %g", ErrInvalidConfig, volume)
	}

	mass := cfg.Mass
	switch {
	case mass > 0:
	case cfg.InitialSpacing > 0:
		s := cfg.InitialSpacing
		mass = cfg.RestDensity * s * s * s
	default:
		mass = cfg.RestDensity * volume / float32(count)
	}

	kernel := InitSmoothing(cfg.SmoothingRadius)
	p := SimulationParameters{
		ParticleCount:        uint32(count),
		SmoothingRadius:      cfg.SmoothingRadius,
		PressureStiffness:    cfg.PressureStiffness,
		RestDensity:          cfg.RestDensity,
		Mass:                 mass,
		Viscosity:            cfg.Viscosity,
		DensityCoef:          kernel.DensityCoef(),
		PressureGradCoef:     kernel.PressureGradCoef(mass),
		ViscosityLaplaceCoef: kernel.ViscosityLaplaceCoef(mass),
		WallStiffness:        cfg.WallStiffness,
		WallDamping:          cfg.WallDamping,
		AABBShrink:           cfg.AABBShrink,
		Gravity:              vector.Vec32{0, -cfg.Gravity, 0},
		TimeStep:             cfg.TimeStep,
		NumPlanes:            geometry.MaxPlanes,
		Version:              1,
	}
	for i, pl := range container.Planes() {
		p.Planes[i] = pl.Vec4()
	}
	return p, nil
}

//ClampTimeStep - non positive steps fall back to the configured default, large ones
//are clamped to MaxTimeStep
func ClampTimeStep(requested float32, fallback float32) float32 {
	if requested <= 0 {
		requested = fallback
	}
	if requested > MaxTimeStep {
		return MaxTimeStep
	}
	return requested
}
