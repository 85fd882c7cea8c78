package gpu

import (
	"fmt"
)

//Bindings - the resources a command reads and writes. Shaders capture the buffers
//they index; bindings exist so the list can check barriers.
type Bindings struct {
	Reads  []Bindable
	Writes []Bindable
}

type command struct {
	name string
	run  func() error
}

//CommandList - records one frame of work. Recording checks read-after-write,
//write-after-write and write-after-read hazards: a resource written by an earlier command
//must go through Barrier before anything else touches it, and one read by an earlier
//command must go through Barrier before it is written. The first violation sticks and
//the list will refuse to submit.
type CommandList struct {
	ctx     *Context
	cmds    []command
	pending map[*Resource]string
	readers map[*Resource]string
	err     error
}

func newCommandList(ctx *Context) *CommandList {
	return &CommandList{
		ctx:     ctx,
		pending: make(map[*Resource]string),
		readers: make(map[*Resource]string),
	}
}

//Err - the first recording error, if any
func (l *CommandList) Err() error { return l.err }

//Len - the number of recorded commands
func (l *CommandList) Len() int { return len(l.cmds) }

func (l *CommandList) record(name string, b Bindings, run func() error) {
	if l.err != nil {
		return
	}
	for _, set := range [][]Bindable{b.Reads, b.Writes} {
		for _, res := range set {
			r := res.resource()
			if writer, ok := l.pending[r]; ok {
				l.err = fmt.Errorf("%w: %s touches %q written by %s", ErrMissingBarrier, name, r.name, writer)
				return
			}
		}
	}
	for _, res := range b.Writes {
		r := res.resource()
		if reader, ok := l.readers[r]; ok {
			l.err = fmt.Errorf("%w: %s writes %q still read by %s", ErrMissingBarrier, name, r.name, reader)
			return
		}
	}
	for _, res := range b.Reads {
		l.readers[res.resource()] = name
	}
	for _, res := range b.Writes {
		l.pending[res.resource()] = name
	}
	l.cmds = append(l.cmds, command{name: name, run: run})
}

//Barrier - makes prior writes to res visible to later commands and retires prior
//reads so res may be written again
func (l *CommandList) Barrier(res ...Bindable) {
	for _, r := range res {
		delete(l.pending, r.resource())
		delete(l.readers, r.resource())
	}
}

//BuildBLAS - records a full rebuild of the bottom level structure from its geometry
func (l *CommandList) BuildBLAS(blas *BottomLevelAS, scratch *Buffer[uint32]) {
	if blas.geometry == nil {
		l.fail(fmt.Errorf("%w: %s has no geometry", ErrNotPrebuilt, blas.name))
		return
	}
	l.record("build "+blas.name, Bindings{
		Reads:  []Bindable{blas.geometry},
		Writes: []Bindable{blas, scratch},
	}, func() error {
		return blas.build(scratch)
	})
}

//BuildTLAS - records a rebuild of the top level structure over its instances
func (l *CommandList) BuildTLAS(tlas *TopLevelAS) {
	reads := make([]Bindable, 0, len(tlas.instances))
	for _, inst := range tlas.instances {
		reads = append(reads, inst.BLAS)
	}
	l.record("build "+tlas.name, Bindings{Reads: reads, Writes: []Bindable{tlas}}, tlas.build)
}

//Dispatch - records groups thread groups of the compute program
func (l *CommandList) Dispatch(p *ComputeProgram, groups int, b Bindings) {
	if p == nil {
		l.fail(fmt.Errorf("%w: dispatch of unbound compute program", ErrShaderTable))
		return
	}
	l.record(p.ProgramName, b, func() error {
		size := p.GroupSize
		l.ctx.parallelFor(groups, func(g int) {
			for t := 0; t < size; t++ {
				p.Main(ThreadID{Group: g, Local: t, Global: g*size + t})
			}
		})
		return nil
	})
}

//DispatchRays - records width ray-gen invocations tracing against tlas. Execution fails
//if tlas was not rebuilt during the current frame.
func (l *CommandList) DispatchRays(p *RayTracingProgram, tlas *TopLevelAS, width int, b Bindings) {
	if p == nil {
		l.fail(fmt.Errorf("%w: dispatch of unbound ray tracing program", ErrShaderTable))
		return
	}
	b.Reads = append(b.Reads, tlas)
	l.record(p.ProgramName, b, func() error {
		if !tlas.built || tlas.builtFrame != l.ctx.frame {
			return fmt.Errorf("%w: %s", ErrStaleAccelerationStructure, tlas.name)
		}
		l.ctx.parallelFor(width, func(i int) {
			p.RayGen(DispatchRays{Index: i, Width: width, tlas: tlas, prog: p})
		})
		return nil
	})
}

//Draw - records a raster pass
func (l *CommandList) Draw(p *GraphicsProgram, b Bindings) {
	if p == nil {
		l.fail(fmt.Errorf("%w: draw with unbound graphics program", ErrShaderTable))
		return
	}
	l.record(p.ProgramName, b, p.Draw)
}

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}
