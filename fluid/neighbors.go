package fluid

import (
	"math"

	vector "diesel.com/raysph/vector"
)

//Reference neighbor search. Walks every pair on the host with no spatial index and
//evaluates the same sums as the ray traced passes; used to validate a frame.

//Neighbors - indexes of all particles within h of particle i, i itself included
func Neighbors(particles []Particle, i int, h float32) []int {
	h2 := h * h
	out := make([]int, 0, 32)
	for j := range particles {
		if vector.LengthSq(vector.Sub(particles[i].Position, particles[j].Position)) < h2 {
			out = append(out, j)
		}
	}
	return out
}

//ReferenceDensity - density of particle i summed over Neighbors
func ReferenceDensity(p *SimulationParameters, particles []Particle, i int) float32 {
	kernel := InitSmoothing(p.SmoothingRadius)
	density := float32(0)
	for _, j := range Neighbors(particles, i, p.SmoothingRadius) {
		r2 := vector.LengthSq(vector.Sub(particles[i].Position, particles[j].Position))
		density += p.Mass * kernel.Poly6(r2) * p.DensityCoef
	}
	return density
}

//ReferenceAcceleration - force pass result for particle i given every density, and the
//summed magnitude of the pair terms it was built from
func ReferenceAcceleration(p *SimulationParameters, particles []Particle, densities []float32, i int) (vector.Vec32, float32) {
	kernel := InitSmoothing(p.SmoothingRadius)
	self := neighbor{Position: particles[i].Position, Velocity: particles[i].Velocity, Density: densities[i]}

	var force vector.Vec32
	var magnitude float32
	for _, j := range Neighbors(particles, i, p.SmoothingRadius) {
		if j == i {
			continue
		}
		other := neighbor{Position: particles[j].Position, Velocity: particles[j].Velocity, Density: densities[j]}
		f := pairForce(p, &kernel, self, other)
		force.Add(f)
		magnitude += vector.Length(f)
	}
	if densities[i] <= 0 {
		return vector.Vec32{}, 0
	}
	return vector.Scale(force, 1/densities[i]), magnitude / densities[i]
}

//ValidationReport - worst relative deviation of the traced passes from the reference
type ValidationReport struct {
	MaxDensityError float32
	MaxAccelError   float32
	Checked         int
}

//ValidateFrame - compares the density and acceleration of every stride-th particle against
//the brute force reference. snapshot is the particle state the passes consumed, copied
//before the frame was submitted since integration moves the particles afterwards.
func ValidateFrame(p *SimulationParameters, snapshot []Particle, densities []float32, accels []vector.Vec32, stride int) ValidationReport {
	if stride < 1 {
		stride = 1
	}
	rep := ValidationReport{}
	for i := 0; i < len(snapshot); i += stride {
		want := ReferenceDensity(p, snapshot, i)
		rep.MaxDensityError = max(rep.MaxDensityError, relErr(densities[i], want))

		//relative to the pair terms, the sum itself may cancel to near zero
		wantAcc, magnitude := ReferenceAcceleration(p, snapshot, densities, i)
		if magnitude > 0 {
			diff := vector.Length(vector.Sub(accels[i], wantAcc))
			rep.MaxAccelError = max(rep.MaxAccelError, diff/magnitude)
		}
		rep.Checked++
	}
	return rep
}

func relErr(got, want float32) float32 {
	if want == 0 {
		return float32(math.Abs(float64(got)))
	}
	return float32(math.Abs(float64((got - want) / want)))
}
