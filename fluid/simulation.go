package fluid

import (
	"fmt"
	"time"

	"diesel.com/raysph/geometry"
	"diesel.com/raysph/gpu"
	"diesel.com/raysph/utils"
	vector "diesel.com/raysph/vector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

//FrameConstants - per frame in flight data, one ring slot per frame
type FrameConstants struct {
	ViewProj mgl32.Mat4
	Gravity  vector.Vec32
	TimeStep float32
}

//CameraState - what the host hands AdvanceFrame to refresh the current slot
type CameraState struct {
	ViewProj mgl32.Mat4
	//GravityDir - world direction gravity pulls in, rotated with the view by the host
	GravityDir vector.Vec32
}

//Visualizer - draws the particles of the current frame. Implementations hold a read
//reference to the particle array only.
type Visualizer interface {
	DrawParticles(particles []Particle, frame *FrameConstants) error
}

//Simulation - owns every particle array, the parameter block, the frame ring and the
//spatial index. One AdvanceFrame per frame records rebuild, density, force and
//integration with the barriers between them.
type Simulation struct {
	log       logrus.FieldLogger
	cfg       Config
	container geometry.Box

	store   *ParticleStore
	params  *gpu.Buffer[SimulationParameters]
	frames  *gpu.Ring[FrameConstants]
	index   *SpatialIndex
	shaders gpu.ShaderTable

	visualizer Visualizer
}

//Initialize - allocates every buffer, derives the parameter block from the particle count
//and the container, seeds the particles on a lattice, loads the shader table and builds
//the initial spatial index. The build is submitted on ctx before returning.
func Initialize(ctx *gpu.Context, particleCount int, container geometry.Box, cfg Config) (*Simulation, error) {
	start := time.Now()
	if err := ctx.RequireRayTracing(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	params, err := DeriveParameters(particleCount, container, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	s := &Simulation{
		log:       ctx.Logger().WithField("component", "fluid"),
		cfg:       cfg,
		container: container,
	}

	if s.store, err = NewParticleStore(ctx, particleCount); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if s.params, err = gpu.NewBuffer[SimulationParameters](ctx, "simulation parameters", 1); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	s.params.Data()[0] = params

	if s.frames, err = gpu.NewRing[FrameConstants](ctx, "frame constants", gpu.FrameCount); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	for i := 0; i < s.frames.Depth(); i++ {
		*s.frames.Slot(i) = FrameConstants{ViewProj: mgl32.Ident4(), Gravity: params.Gravity, TimeStep: params.TimeStep}
	}

	positions, err := utils.LatticePositions(container, particleCount, cfg.InitialSpacing)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := s.store.Seed(positions, params.SmoothingRadius, params.AABBShrink); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if s.index, err = NewSpatialIndex(ctx, s.store.AABBs, particleCount, cfg.BuildFlags); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := s.createShaders(ctx); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if err := s.index.Rebuild(ctx.CommandList(), s.store.AABBs); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := ctx.Submit(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"particles":  particleCount,
		"h":          params.SmoothingRadius,
		"mass":       params.Mass,
		"restDens":   params.RestDensity,
		"densCoef":   params.DensityCoef,
		"gradCoef":   params.PressureGradCoef,
		"laplCoef":   params.ViscosityLaplaceCoef,
		"elapsed":    time.Since(start),
		"buildFlags": cfg.BuildFlags,
	}).Info("fluid initialized")
	return s, nil
}

//createShaders - binds the fixed set of kernels and validates the table
func (s *Simulation) createShaders(ctx *gpu.Context) error {
	bind := []struct {
		kernel gpu.Kernel
		prog   gpu.Program
	}{
		{gpu.KernelDensity, newDensityProgram(s.store, s.params)},
		{gpu.KernelForce, newForceProgram(s.store, s.params)},
		{gpu.KernelIntegrate, newIntegrateProgram(ctx, s.store, s.params, s.frames)},
		{gpu.KernelVisualize, s.newVisualizeProgram(ctx)},
	}
	for _, b := range bind {
		if err := s.shaders.Bind(b.kernel, b.prog); err != nil {
			return err
		}
	}
	return s.shaders.Validate()
}

func (s *Simulation) newVisualizeProgram(ctx *gpu.Context) *gpu.GraphicsProgram {
	return &gpu.GraphicsProgram{
		ProgramName: "visualize",
		Draw: func() error {
			if s.visualizer == nil {
				return nil
			}
			return s.visualizer.DrawParticles(s.store.Particles.Data(), s.frames.Slot(s.FrameSlot(ctx)))
		},
	}
}

//SetVisualizer - attaches the point renderer; nil disables the visualization pass
func (s *Simulation) SetVisualizer(v Visualizer) {
	s.visualizer = v
}

//UpdateCamera - writes the camera and gravity of one frame slot. A zero gravityDir
//turns gravity off for that frame.
func (s *Simulation) UpdateCamera(slot int, viewProj mgl32.Mat4, gravityDir vector.Vec32) {
	frame := s.frames.Slot(slot)
	frame.ViewProj = viewProj
	frame.Gravity = vector.Scale(vector.Normalize(gravityDir), s.cfg.Gravity)
}

//AdvanceFrame - records one simulation step into the context's command list. cam may be
//nil to keep the camera and gravity already in the current slot. Errors here are
//recording errors and indicate a bug.
func (s *Simulation) AdvanceFrame(ctx *gpu.Context, timestep float32, cam *CameraState) error {
	slot := s.FrameSlot(ctx)
	if cam != nil {
		s.UpdateCamera(slot, cam.ViewProj, cam.GravityDir)
	}
	s.frames.Slot(slot).TimeStep = ClampTimeStep(timestep, s.cfg.TimeStep)

	cl := ctx.CommandList()
	if err := s.index.Rebuild(cl, s.store.AABBs); err != nil {
		return fmt.Errorf("advance frame %d: %w", ctx.FrameIndex(), err)
	}

	s.recordDensity(cl)
	cl.Barrier(s.store.Densities)
	s.recordForce(cl)
	//integration overwrites what the rebuild and both queries read
	cl.Barrier(s.store.Accelerations, s.store.Particles, s.store.AABBs)
	s.recordIntegrate(cl)
	cl.Barrier(s.store.Particles, s.store.AABBs)

	if s.visualizer != nil {
		cl.Draw(s.shaders.Graphics(gpu.KernelVisualize), gpu.Bindings{
			Reads: []gpu.Bindable{s.store.Particles, s.frames},
		})
	}

	if err := cl.Err(); err != nil {
		return fmt.Errorf("advance frame %d: %w", ctx.FrameIndex(), err)
	}
	return nil
}

//Count - number of particles
func (s *Simulation) Count() int {
	return s.store.Count
}

//Container - the box the boundary planes were derived from
func (s *Simulation) Container() geometry.Box {
	return s.container
}

//Particles - host view of the particle buffer, valid after Submit
func (s *Simulation) Particles() []Particle {
	return s.store.Particles.Data()
}

//Densities - host view of the last density pass
func (s *Simulation) Densities() []float32 {
	return s.store.Densities.Data()
}

//Accelerations - host view of the last force pass, before gravity and walls
func (s *Simulation) Accelerations() []vector.Vec32 {
	return s.store.Accelerations.Data()
}

//AABBs - host view of the particle boxes
func (s *Simulation) AABBs() []ParticleAABB {
	return s.store.AABBs.Data()
}

//Params - copy of the parameter block
func (s *Simulation) Params() SimulationParameters {
	return s.params.Data()[0]
}

//FrameSlot - ring slot owned by the frame ctx is recording
func (s *Simulation) FrameSlot(ctx *gpu.Context) int {
	return s.frames.SlotFor(ctx.FrameIndex())
}

//Frame - copy of the constants in slot
func (s *Simulation) Frame(slot int) FrameConstants {
	return *s.frames.Slot(slot)
}

//SpatialIndex - the neighbor index
func (s *Simulation) SpatialIndex() *SpatialIndex {
	return s.index
}

//UpdateParameters - host write of the parameter block between frames; bumps Version
func (s *Simulation) UpdateParameters(update func(p *SimulationParameters)) {
	p := &s.params.Data()[0]
	update(p)
	p.Version++
}
