package fluid

import (
	"math"

	"diesel.com/raysph/gpu"
	vector "diesel.com/raysph/vector"
)

type forcePayload struct {
	force vector.Vec32
}

//neighbor - the state of one side of an interacting pair
type neighbor struct {
	Position vector.Vec32
	Velocity vector.Vec32
	Density  float32
}

//pairForce - pressure gradient plus viscosity laplacian exerted by j on i, per unit
//volume. Coincident pairs have no pressure direction and only exchange viscosity.
func pairForce(p *SimulationParameters, kernel *SmoothingKernel, i neighbor, j neighbor) vector.Vec32 {
	diff := vector.Sub(i.Position, j.Position)
	r2 := vector.LengthSq(diff)
	if r2 >= p.SmoothingRadius*p.SmoothingRadius {
		return vector.Vec32{}
	}
	r := float32(math.Sqrt(float64(r2)))

	var f vector.Vec32
	if r > 0 {
		pi := p.PressureStiffness * (i.Density - p.RestDensity)
		pj := p.PressureStiffness * (j.Density - p.RestDensity)
		pressure := -(pi + pj) / (2 * j.Density) * kernel.SpikyGrad(r) * p.PressureGradCoef
		f = vector.Scale(diff, pressure/r)
	}

	visc := p.Viscosity / j.Density * kernel.ViscosityLaplace(r) * p.ViscosityLaplaceCoef
	f.AddScaled(vector.Sub(j.Velocity, i.Velocity), visc)
	return f
}

//newForceProgram - one ray per particle accumulating pair forces from every neighbor
//other than itself. The result is divided by the particle's own density; gravity and
//walls are applied by the Integration pass.
func newForceProgram(store *ParticleStore, params *gpu.Buffer[SimulationParameters]) *gpu.RayTracingProgram {
	particles := store.Particles.Data()
	densities := store.Densities.Data()
	accelerations := store.Accelerations.Data()
	constants := params.Data()

	state := func(k int) neighbor {
		return neighbor{Position: particles[k].Position, Velocity: particles[k].Velocity, Density: densities[k]}
	}

	return &gpu.RayTracingProgram{
		ProgramName: "force",
		RayGen: func(d gpu.DispatchRays) {
			p := &constants[0]
			payload := forcePayload{}
			d.TraceRay(NeighborProbe(particles[d.Index].Position, p.SmoothingRadius, p.AABBShrink), &payload)

			rho := densities[d.Index]
			if rho > 0 {
				accelerations[d.Index] = vector.Scale(payload.force, 1/rho)
			} else {
				accelerations[d.Index] = vector.Vec32{}
			}
		},
		Hit: gpu.HitGroup{
			Name: "force gather",
			Intersection: func(hit gpu.Hit) (float32, bool) {
				if hit.RayIndex == hit.Primitive {
					return 0, false
				}
				p := &constants[0]
				r2 := vector.LengthSq(vector.Sub(particles[hit.RayIndex].Position, particles[hit.Primitive].Position))
				return hit.Ray.TMin, r2 < p.SmoothingRadius*p.SmoothingRadius
			},
			AnyHit: func(payload any, hit gpu.Hit) gpu.HitAction {
				if hit.RayIndex == hit.Primitive {
					return gpu.IgnoreHit
				}
				p := &constants[0]
				kernel := InitSmoothing(p.SmoothingRadius)
				acc := payload.(*forcePayload)
				acc.force.Add(pairForce(p, &kernel, state(hit.RayIndex), state(hit.Primitive)))
				return gpu.IgnoreHit
			},
		},
		MaxRecursionDepth: 1,
	}
}

//recordForce - must follow recordDensity with a barrier on the density buffer
func (s *Simulation) recordForce(cl *gpu.CommandList) {
	cl.DispatchRays(s.shaders.RayTracing(gpu.KernelForce), s.index.TLAS(), s.store.Count, gpu.Bindings{
		Reads:  []gpu.Bindable{s.store.Particles, s.store.Densities, s.params},
		Writes: []gpu.Bindable{s.store.Accelerations},
	})
}
