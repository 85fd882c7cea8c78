package config

import (
	"fmt"
	"strings"

	"diesel.com/raysph/fluid"
	"diesel.com/raysph/geometry"
	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
	"github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"
)

//ExampleConfig is a complete config file holding the default values
const ExampleConfig = `[simulation]
Particles = 65536
SmoothingRadius = 0.02
RestDensity = 1000
Stiffness = 0.2
Viscosity = 0.1
WallStiffness = 3000
WallDamping = 50
Gravity = 9.8
TimeStep = 0.005
# zero derives the mass from the rest density and the spacing, or the container
# volume when the spacing is zero
Mass = 0
AABBShrink = 1
# half the smoothing radius; zero spreads the particles evenly over the container
Spacing = 0.01
# fast-build or fast-trace
BuildPreference = fast-build

[container]
Width = 1
Height = 1
Depth = 1
X = 0.5
Y = 0.5
Z = 0.5

[window]
Width = 1440
Height = 900
Title = Ray Traced SPH

[log]
Level = info
`

type SimulationConfig struct {
	Particles       int
	SmoothingRadius float64
	RestDensity     float64
	Stiffness       float64
	Viscosity       float64
	WallStiffness   float64
	WallDamping     float64
	Gravity         float64
	TimeStep        float64
	Mass            float64
	AABBShrink      float64
	Spacing         float64
	BuildPreference string
}

type ContainerConfig struct {
	Width, Height, Depth float64
	X, Y, Z              float64
}

type WindowConfig struct {
	Width, Height int
	Title         string
}

type LogConfig struct {
	Level string
}

//Config mirrors the sections of the ini file
type Config struct {
	Simulation SimulationConfig
	Container  ContainerConfig
	Window     WindowConfig
	Log        LogConfig
}

//Default - configuration matching ExampleConfig and fluid.DefaultConfig
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Particles:       fluid.DefaultParticleCount,
			SmoothingRadius: 0.02,
			RestDensity:     1000,
			Stiffness:       0.2,
			Viscosity:       0.1,
			WallStiffness:   3000,
			WallDamping:     50,
			Gravity:         9.8,
			TimeStep:        fluid.MaxTimeStep,
			AABBShrink:      1,
			Spacing:         0.01,
			BuildPreference: "fast-build",
		},
		Container: ContainerConfig{Width: 1, Height: 1, Depth: 1, X: 0.5, Y: 0.5, Z: 0.5},
		Window:    WindowConfig{Width: 1440, Height: 900, Title: "Ray Traced SPH"},
		Log:       LogConfig{Level: "info"},
	}
}

//Load reads fname over the defaults, keys missing from the file keep their default value
func Load(fname string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadFileInto(cfg, fname); err != nil {
		return nil, fmt.Errorf("read config %s: %w", fname, err)
	}
	if err := cfg.CheckInit(); err != nil {
		return nil, fmt.Errorf("config %s: %w", fname, err)
	}
	return cfg, nil
}

//Parse is Load for an in-memory config
func Parse(text string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(cfg, text); err != nil {
		return nil, err
	}
	if err := cfg.CheckInit(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (sim *SimulationConfig) CheckInit() error {
	if sim.Particles <= 0 {
		return fmt.Errorf("Particles must be positive, but is %d", sim.Particles)
	}
	if _, err := sim.BuildFlags(); err != nil {
		return err
	}
	fc, err := sim.Fluid()
	if err != nil {
		return err
	}
	return fc.Validate()
}

//BuildFlags - acceleration structure build preference named in the file
func (sim *SimulationConfig) BuildFlags() (gpu.BuildFlags, error) {
	switch strings.ToLower(sim.BuildPreference) {
	case "", "fast-build":
		return gpu.BuildPreferFastBuild, nil
	case "fast-trace":
		return gpu.BuildPreferFastTrace, nil
	}
	return 0, fmt.Errorf(
		"BuildPreference must be 'fast-build' or 'fast-trace', but is '%s'",
		sim.BuildPreference,
	)
}

//Fluid converts the section into the physical constants of the simulation
func (sim *SimulationConfig) Fluid() (fluid.Config, error) {
	flags, err := sim.BuildFlags()
	if err != nil {
		return fluid.Config{}, err
	}
	return fluid.Config{
		SmoothingRadius:   float32(sim.SmoothingRadius),
		RestDensity:       float32(sim.RestDensity),
		PressureStiffness: float32(sim.Stiffness),
		Viscosity:         float32(sim.Viscosity),
		WallStiffness:     float32(sim.WallStiffness),
		WallDamping:       float32(sim.WallDamping),
		Gravity:           float32(sim.Gravity),
		TimeStep:          float32(sim.TimeStep),
		Mass:              float32(sim.Mass),
		AABBShrink:        float32(sim.AABBShrink),
		InitialSpacing:    float32(sim.Spacing),
		BuildFlags:        flags,
	}, nil
}

func (c *ContainerConfig) CheckInit() error {
	if c.Width <= 0 {
		return fmt.Errorf("Need to specify a positive Width for the container")
	} else if c.Height <= 0 {
		return fmt.Errorf("Need to specify a positive Height for the container")
	} else if c.Depth <= 0 {
		return fmt.Errorf("Need to specify a positive Depth for the container")
	}
	return nil
}

//Box - the container the fluid is seeded into
func (c *ContainerConfig) Box() (geometry.Box, error) {
	return geometry.NewBox(
		float32(c.Width), float32(c.Height), float32(c.Depth),
		vector.Vec32{float32(c.X), float32(c.Y), float32(c.Z)},
	)
}

func (w *WindowConfig) CheckInit() error {
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("Window size must be positive, but is %d x %d", w.Width, w.Height)
	}
	return nil
}

//LogLevel - parsed [log] level
func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}

//CheckInit validates every section
func (c *Config) CheckInit() error {
	if err := c.Simulation.CheckInit(); err != nil {
		return fmt.Errorf("[simulation]: %w", err)
	}
	if err := c.Container.CheckInit(); err != nil {
		return fmt.Errorf("[container]: %w", err)
	}
	if err := c.Window.CheckInit(); err != nil {
		return fmt.Errorf("[window]: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("[log]: %w", err)
	}
	return nil
}
