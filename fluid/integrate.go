package fluid

import (
	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
)

//integrateParticle - semi implicit Euler step with penalty wall response. Walls are
//tested at the pre step position; a wall pushes back proportional to penetration depth
//and damps only the velocity component driving further into it.
func integrateParticle(p *SimulationParameters, frame *FrameConstants, part *Particle, accel vector.Vec32) {
	dt := frame.TimeStep
	part.Velocity.AddScaled(vector.Add(accel, frame.Gravity), dt)

	for k := 0; k < int(p.NumPlanes); k++ {
		plane := p.Plane(k)
		d := plane.SignedDistance(part.Position)
		if d >= 0 {
			continue
		}
		vn := vector.Dot(part.Velocity, plane.Normal)
		if vn > 0 {
			vn = 0
		}
		response := p.WallStiffness*(-d) - p.WallDamping*vn
		part.Velocity.AddScaled(plane.Normal, dt*response)
	}

	part.Position.AddScaled(part.Velocity, dt)
}

//newIntegrateProgram - one thread per particle in groups of IntegrateGroupSize. Reads
//the frame constants of the slot owned by the frame being executed.
func newIntegrateProgram(ctx *gpu.Context, store *ParticleStore, params *gpu.Buffer[SimulationParameters], frames *gpu.Ring[FrameConstants]) *gpu.ComputeProgram {
	particles := store.Particles.Data()
	aabbs := store.AABBs.Data()
	accelerations := store.Accelerations.Data()
	constants := params.Data()

	return &gpu.ComputeProgram{
		ProgramName: "integrate",
		GroupSize:   IntegrateGroupSize,
		Main: func(id gpu.ThreadID) {
			i := id.Global
			if i >= len(particles) {
				return
			}
			p := &constants[0]
			frame := frames.Slot(frames.SlotFor(ctx.FrameIndex()))
			integrateParticle(p, frame, &particles[i], accelerations[i])
			aabbs[i] = ComputeAABB(particles[i].Position, p.SmoothingRadius, p.AABBShrink)
		},
	}
}

//recordIntegrate - sole writer of the particle and box buffers
func (s *Simulation) recordIntegrate(cl *gpu.CommandList) {
	groups := (s.store.Count + IntegrateGroupSize - 1) / IntegrateGroupSize
	cl.Dispatch(s.shaders.Compute(gpu.KernelIntegrate), groups, gpu.Bindings{
		Reads:  []gpu.Bindable{s.store.Accelerations, s.params, s.frames},
		Writes: []gpu.Bindable{s.store.Particles, s.store.AABBs},
	})
}
