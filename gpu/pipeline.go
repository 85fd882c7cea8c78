package gpu

import (
	"fmt"

	"diesel.com/raysph/vector"
)

//Stage - the pipeline a program runs on
type Stage uint8

const (
	StageCompute Stage = iota
	StageRayTracing
	StageGraphics
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageRayTracing:
		return "ray-tracing"
	case StageGraphics:
		return "graphics"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

//Kernel - names one of the closed set of programs the fluid core loads
type Kernel uint8

const (
	KernelDensity Kernel = iota
	KernelForce
	KernelIntegrate
	KernelVisualize

	NumKernels
)

func (k Kernel) String() string {
	switch k {
	case KernelDensity:
		return "density"
	case KernelForce:
		return "force"
	case KernelIntegrate:
		return "integrate"
	case KernelVisualize:
		return "visualize"
	}
	return fmt.Sprintf("kernel(%d)", uint8(k))
}

//Stage - the pipeline the kernel must be bound to
func (k Kernel) Stage() Stage {
	switch k {
	case KernelDensity, KernelForce:
		return StageRayTracing
	case KernelIntegrate:
		return StageCompute
	}
	return StageGraphics
}

//Program - a loaded shader binary
type Program interface {
	Name() string
	Stage() Stage
}

//ThreadID - locates one compute invocation
type ThreadID struct {
	Group  int
	Local  int
	Global int
}

//ComputeProgram - runs Main once per thread; threads are issued in groups of GroupSize
type ComputeProgram struct {
	ProgramName string
	GroupSize   int
	Main        func(id ThreadID)
}

func (p *ComputeProgram) Name() string { return p.ProgramName }
func (p *ComputeProgram) Stage() Stage { return StageCompute }

//GraphicsProgram - a raster pass; Draw issues the draw calls
type GraphicsProgram struct {
	ProgramName string
	Draw        func() error
}

func (p *GraphicsProgram) Name() string { return p.ProgramName }
func (p *GraphicsProgram) Stage() Stage { return StageGraphics }

//Ray - traced over [TMin, TMax] along Direction. Direction need not be normalized and
//may be zero, which turns the trace into a point query.
type Ray struct {
	Origin    vector.Vec32
	Direction vector.Vec32
	TMin      float32
	TMax      float32
}

//HitAction - what an any-hit shader tells traversal to do with a candidate
type HitAction uint8

const (
	//AcceptHit - commits the candidate and keeps traversing for closer ones
	AcceptHit HitAction = iota
	//IgnoreHit - drops the candidate and keeps traversing
	IgnoreHit
	//AcceptHitAndEndSearch - commits the candidate and stops
	AcceptHitAndEndSearch
)

//Hit - describes a candidate or committed intersection
type Hit struct {
	//RayIndex - the dispatch index of the ray-gen invocation that traced the ray
	RayIndex  int
	Primitive int
	Instance  int
	T         float32
	//Ray - in object space of the instance
	Ray Ray
}

//HitGroup - holds the per-geometry shaders. Intersection is required for procedural
//geometry; AnyHit only runs for non-opaque geometry.
type HitGroup struct {
	Name         string
	Intersection func(hit Hit) (t float32, ok bool)
	AnyHit       func(payload any, hit Hit) HitAction
	ClosestHit   func(payload any, hit Hit)
}

//RayTracingProgram - a shader library with one ray-gen, one hit group and one miss
type RayTracingProgram struct {
	ProgramName       string
	RayGen            func(d DispatchRays)
	Hit               HitGroup
	Miss              func(payload any)
	MaxRecursionDepth int
}

func (p *RayTracingProgram) Name() string { return p.ProgramName }
func (p *RayTracingProgram) Stage() Stage { return StageRayTracing }

//ShaderTable - maps every kernel to its loaded program
type ShaderTable [NumKernels]Program

//Bind - stores p for k after checking it targets the kernel's pipeline
func (t *ShaderTable) Bind(k Kernel, p Program) error {
	if k >= NumKernels {
		return fmt.Errorf("%w: unknown kernel %d", ErrShaderTable, uint8(k))
	}
	if p == nil {
		return fmt.Errorf("%w: nil program for %s", ErrShaderTable, k)
	}
	if p.Stage() != k.Stage() {
		return fmt.Errorf("%w: %s is a %s program, %s needs %s",
			ErrShaderTable, p.Name(), p.Stage(), k, k.Stage())
	}
	t[k] = p
	return nil
}

//Validate - reports the first unbound or malformed entry
func (t *ShaderTable) Validate() error {
	for k := Kernel(0); k < NumKernels; k++ {
		p := t[k]
		if p == nil {
			return fmt.Errorf("%w: %s is not bound", ErrShaderTable, k)
		}
		switch prog := p.(type) {
		case *ComputeProgram:
			if prog.Main == nil || prog.GroupSize <= 0 {
				return fmt.Errorf("%w: %s has no entry point or group size", ErrShaderTable, k)
			}
		case *RayTracingProgram:
			if prog.RayGen == nil || prog.Hit.Intersection == nil {
				return fmt.Errorf("%w: %s needs ray-gen and intersection shaders", ErrShaderTable, k)
			}
		case *GraphicsProgram:
			if prog.Draw == nil {
				return fmt.Errorf("%w: %s has no draw entry", ErrShaderTable, k)
			}
		}
	}
	return nil
}

func (t *ShaderTable) Compute(k Kernel) *ComputeProgram {
	p, _ := t[k].(*ComputeProgram)
	return p
}

func (t *ShaderTable) RayTracing(k Kernel) *RayTracingProgram {
	p, _ := t[k].(*RayTracingProgram)
	return p
}

func (t *ShaderTable) Graphics(k Kernel) *GraphicsProgram {
	p, _ := t[k].(*GraphicsProgram)
	return p
}
