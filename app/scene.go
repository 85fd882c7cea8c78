package app

//Manages the fluid scene - owns the device context and the simulation, steps frames
//for the window loop and runs headless batches
import (
	"fmt"
	"time"

	"diesel.com/raysph/config"
	"diesel.com/raysph/fluid"
	"diesel.com/raysph/geometry"
	"diesel.com/raysph/gpu"
	"github.com/sirupsen/logrus"
)

//Seconds timer for animation
type AnimationTimer struct {
	AppStart   time.Time //Time the scene was created
	LastFrame  time.Time //Wall time of the last step
	SimTime    float64   //Simulated seconds
	FrameCount uint64
}

//Scene - a simulation and the device context it records into
type Scene struct {
	log       logrus.FieldLogger
	ctx       *gpu.Context
	sim       *fluid.Simulation
	container geometry.Box
	Anim      AnimationTimer
}

//NewScene - builds the container and the simulation described by cfg on the software
//device. A nil log uses the standard logger.
func NewScene(cfg *config.Config, log logrus.FieldLogger) (*Scene, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.CheckInit(); err != nil {
		return nil, err
	}
	container, err := cfg.Container.Box()
	if err != nil {
		return nil, err
	}
	fc, err := cfg.Simulation.Fluid()
	if err != nil {
		return nil, err
	}

	ctx := gpu.NewContext(gpu.SoftwareCaps(), log)
	sim, err := fluid.Initialize(ctx, cfg.Simulation.Particles, container, fc)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Scene{
		log:       log.WithField("component", "scene"),
		ctx:       ctx,
		sim:       sim,
		container: container,
		Anim:      AnimationTimer{AppStart: now, LastFrame: now},
	}, nil
}

func (s *Scene) Simulation() *fluid.Simulation { return s.sim }

func (s *Scene) Context() *gpu.Context { return s.ctx }

func (s *Scene) Container() geometry.Box { return s.container }

//Step - records, submits and retires one frame. A non-positive timestep uses the
//configured default, cam nil keeps the camera of the frame slot.
func (s *Scene) Step(timestep float32, cam *fluid.CameraState) error {
	if err := s.sim.AdvanceFrame(s.ctx, timestep, cam); err != nil {
		return err
	}
	if err := s.ctx.Submit(); err != nil {
		return err
	}
	s.Anim.SimTime += float64(s.sim.Frame(s.sim.FrameSlot(s.ctx)).TimeStep)
	s.Anim.FrameCount++
	s.Anim.LastFrame = time.Now()
	s.ctx.MoveToNextFrame()
	return nil
}

//HeadlessOptions - batch run without a window
type HeadlessOptions struct {
	Frames   int
	TimeStep float32
	//ValidateEvery - compare the traced passes against the brute force reference every
	//n frames, zero never validates
	ValidateEvery int
	//Stride - validate every stride-th particle
	Stride   int
	LogEvery int
}

//HeadlessResult - state after the last frame and the worst validation seen
type HeadlessResult struct {
	Frames     int
	Stats      fluid.FrameStats
	Validation fluid.ValidationReport
	Elapsed    time.Duration
}

//RunHeadless - steps opts.Frames frames, logging statistics along the way
func (s *Scene) RunHeadless(opts HeadlessOptions) (HeadlessResult, error) {
	if opts.Frames <= 0 {
		return HeadlessResult{}, fmt.Errorf("headless run needs a positive frame count, got %d", opts.Frames)
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = 100
	}

	res := HeadlessResult{}
	tolerance := s.sim.Params().SmoothingRadius
	start := time.Now()
	var snapshot []fluid.Particle
	for frame := 1; frame <= opts.Frames; frame++ {
		validate := opts.ValidateEvery > 0 && frame%opts.ValidateEvery == 0
		if validate {
			snapshot = append(snapshot[:0], s.sim.Particles()...)
		}

		if err := s.sim.AdvanceFrame(s.ctx, opts.TimeStep, nil); err != nil {
			return res, err
		}
		if err := s.ctx.Submit(); err != nil {
			return res, err
		}

		if validate {
			params := s.sim.Params()
			rep := fluid.ValidateFrame(&params, snapshot, s.sim.Densities(), s.sim.Accelerations(), opts.Stride)
			res.Validation.MaxDensityError = max(res.Validation.MaxDensityError, rep.MaxDensityError)
			res.Validation.MaxAccelError = max(res.Validation.MaxAccelError, rep.MaxAccelError)
			res.Validation.Checked += rep.Checked
			s.log.WithFields(logrus.Fields{
				"frame":         frame,
				"density_error": rep.MaxDensityError,
				"accel_error":   rep.MaxAccelError,
				"checked":       rep.Checked,
			}).Debug("validated frame")
		}

		res.Stats = s.sim.Stats(tolerance)
		res.Frames = frame
		s.Anim.SimTime += float64(s.sim.Frame(s.sim.FrameSlot(s.ctx)).TimeStep)
		s.Anim.FrameCount++
		s.ctx.MoveToNextFrame()

		if res.Stats.NonFinite > 0 {
			s.log.WithFields(res.Stats.Fields()).Warn("non finite particle state")
		}
		if frame%opts.LogEvery == 0 || frame == opts.Frames {
			s.log.WithFields(res.Stats.Fields()).WithField("frame", frame).Info("frame stats")
		}
	}
	res.Elapsed = time.Since(start)
	s.Anim.LastFrame = time.Now()

	s.log.WithFields(logrus.Fields{
		"frames":   res.Frames,
		"elapsed":  res.Elapsed,
		"sim_time": s.Anim.SimTime,
	}).Info("headless run finished")
	return res, nil
}
