package fluid

import (
	"testing"

	"diesel.com/raysph/geometry"
	vector "diesel.com/raysph/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveParameters(t *testing.T) {
	cfg := DefaultConfig()
	p, err := DeriveParameters(64, geometry.UnitCube(), cfg)
	require.NoError(t, err)

	k := InitSmoothing(cfg.SmoothingRadius)
	assert.Equal(t, uint32(64), p.ParticleCount)
	s := cfg.InitialSpacing
	assert.Equal(t, cfg.RestDensity*s*s*s, p.Mass)
	assert.Equal(t, k.DensityCoef(), p.DensityCoef)
	assert.Equal(t, k.PressureGradCoef(p.Mass), p.PressureGradCoef)
	assert.Equal(t, k.ViscosityLaplaceCoef(p.Mass), p.ViscosityLaplaceCoef)
	assert.Equal(t, vector.Vec32{0, -9.8, 0}, p.Gravity)
	assert.Equal(t, uint32(geometry.MaxPlanes), p.NumPlanes)
	assert.Equal(t, uint64(1), p.Version)

	//planes match the container walls
	walls := geometry.UnitCube().Planes()
	for i := range walls {
		assert.Equal(t, walls[i], p.Plane(i))
	}
}

func TestDeriveParametersEvenFillMass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialSpacing = 0
	p, err := DeriveParameters(64, geometry.UnitCube(), cfg)
	require.NoError(t, err)
	assert.Equal(t, float32(1000.0/64.0), p.Mass)
}

func TestDefaultLatticeSumsToRestDensity(t *testing.T) {
	cfg := DefaultConfig()
	p, err := DeriveParameters(1, geometry.UnitCube(), cfg)
	require.NoError(t, err)
	k := InitSmoothing(p.SmoothingRadius)

	//interior particle of an infinite lattice at the default spacing
	s := cfg.InitialSpacing
	var rho float32
	for x := -2; x <= 2; x++ {
		for y := -2; y <= 2; y++ {
			for z := -2; z <= 2; z++ {
				r := vector.Vec32{float32(x) * s, float32(y) * s, float32(z) * s}
				rho += p.Mass * k.Poly6(vector.Dot(r, r)) * p.DensityCoef
			}
		}
	}
	assert.InDelta(t, p.RestDensity, rho, 0.02*float64(p.RestDensity))

	//pressure at that density stays small against gravity over a smoothing radius
	pressure := p.PressureStiffness * (rho - p.RestDensity)
	assert.Less(t, pressure, p.RestDensity*9.8*p.SmoothingRadius)
}

func TestDeriveParametersMassOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mass = 0.02
	box, err := geometry.NewBox(2, 1, 1, vector.Vec32{})
	require.NoError(t, err)

	p, err := DeriveParameters(1000, box, cfg)
	require.NoError(t, err)
	assert.Equal(t, float32(0.02), p.Mass)
}

func TestDeriveParametersRejects(t *testing.T) {
	_, err := DeriveParameters(0, geometry.UnitCube(), DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cases := map[string]func(c *Config){
		"radius":    func(c *Config) { c.SmoothingRadius = 0 },
		"density":   func(c *Config) { c.RestDensity = -1 },
		"viscosity": func(c *Config) { c.Viscosity = -0.1 },
		"walls":     func(c *Config) { c.WallDamping = -1 },
		"timestep":  func(c *Config) { c.TimeStep = 0 },
		"mass":      func(c *Config) { c.Mass = -1 },
		"shrink":    func(c *Config) { c.AABBShrink = 1.5 },
		"spacing":   func(c *Config) { c.InitialSpacing = -0.1 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := DeriveParameters(64, geometry.UnitCube(), cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestClampTimeStep(t *testing.T) {
	assert.Equal(t, float32(0.001), ClampTimeStep(0.001, 0.004))
	assert.Equal(t, float32(MaxTimeStep), ClampTimeStep(0.1, 0.004))
	assert.Equal(t, float32(0.004), ClampTimeStep(0, 0.004))
	assert.Equal(t, float32(0.004), ClampTimeStep(-1, 0.004))
	assert.Equal(t, float32(MaxTimeStep), ClampTimeStep(-1, 1))
}
