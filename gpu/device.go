//Package gpu - the graphics backend the fluid core records its work against: typed
//buffers, resource barriers, an in-order command list, compute and ray-tracing dispatch,
//and a two-level acceleration structure. The device implemented here executes every
//dispatch on the CPU, fanning invocations out over goroutines.
package gpu

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/sirupsen/logrus"
)

//FrameCount - the number of frames in flight. Per-frame constant data is kept in
//rings of this depth.
const FrameCount = 3

var (
	ErrRayTracingUnsupported      = errors.New("gpu: device does not support ray tracing")
	ErrAllocation                 = errors.New("gpu: resource allocation failed")
	ErrMissingBarrier             = errors.New("gpu: missing barrier between dependent commands")
	ErrStaleAccelerationStructure = errors.New("gpu: acceleration structure was not rebuilt this frame")
	ErrScratchTooSmall            = errors.New("gpu: scratch buffer smaller than prebuild size")
	ErrShaderTable                = errors.New("gpu: invalid shader table")
	ErrNotPrebuilt                = errors.New("gpu: acceleration structure used before prebuild")
)

//Caps - describes what the device can do
type Caps struct {
	RayTracing        bool
	MaxBufferElements int
	//Workers - bounds the goroutines a single dispatch fans out to
	Workers int
}

//SoftwareCaps - the capabilities of the CPU device
func SoftwareCaps() Caps {
	return Caps{
		RayTracing:        true,
		MaxBufferElements: 1 << 24,
		Workers:           runtime.NumCPU(),
	}
}

//Context - owns the device capabilities, the frame counter and the command list being
//recorded for the current frame.
type Context struct {
	caps   Caps
	log    logrus.FieldLogger
	frame  uint64
	list   *CommandList
	nextID int
}

func NewContext(caps Caps, logger logrus.FieldLogger) *Context {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if caps.Workers < 1 {
		caps.Workers = 1
	}
	ctx := &Context{caps: caps, log: logger.WithField("component", "gpu")}
	ctx.list = newCommandList(ctx)
	return ctx
}

func (c *Context) Caps() Caps { return c.caps }

func (c *Context) Logger() logrus.FieldLogger { return c.log }

//FrameIndex - the monotonically increasing frame number
func (c *Context) FrameIndex() uint64 { return c.frame }

//CommandList - returns the list being recorded for the current frame
func (c *Context) CommandList() *CommandList { return c.list }

//RequireRayTracing - fails fast on devices without ray-tracing support
func (c *Context) RequireRayTracing() error {
	if !c.caps.RayTracing {
		return ErrRayTracingUnsupported
	}
	return nil
}

//Submit - executes the recorded commands in order and resets the list. A list that
//failed validation while recording is discarded without executing anything.
func (c *Context) Submit() error {
	list := c.list
	c.list = newCommandList(c)

	if list.err != nil {
		return fmt.Errorf("submit frame %d: %w", c.frame, list.err)
	}
	for _, cmd := range list.cmds {
		if err := cmd.run(); err != nil {
			return fmt.Errorf("submit frame %d: %s: %w", c.frame, cmd.name, err)
		}
	}
	return nil
}

//MoveToNextFrame - advances the frame counter. The CPU queue completes every submission
//synchronously, so the slot being reused is always idle.
func (c *Context) MoveToNextFrame() {
	c.frame++
}

func (c *Context) newResource(name string) Resource {
	c.nextID++
	return Resource{name: name, id: c.nextID}
}

//parallelFor - runs fn for every index in [0, n) across the configured workers
func (c *Context) parallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if c.caps.Workers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	parallel.WithNumGoroutines(c.caps.Workers).For(n, func(i, _ int) {
		fn(i)
	})
}
