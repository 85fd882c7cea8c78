package fluid

import (
	"math"

	vector "diesel.com/raysph/vector"
	"github.com/sirupsen/logrus"
)

//FrameStats - summary of the particle state after a frame
type FrameStats struct {
	MinDensity  float32
	MaxDensity  float32
	MeanDensity float32
	MaxSpeed    float32
	//Escaped - particles outside the container by more than the tolerance
	Escaped   int
	NonFinite int
}

//Stats - walks the readback buffers; only valid after the frame was submitted
func (s *Simulation) Stats(tolerance float32) FrameStats {
	st := FrameStats{MinDensity: math.MaxFloat32}
	var sum float64
	for _, d := range s.Densities() {
		st.MinDensity = min(st.MinDensity, d)
		st.MaxDensity = max(st.MaxDensity, d)
		sum += float64(d)
	}
	st.MeanDensity = float32(sum / float64(s.Count()))

	for _, p := range s.Particles() {
		if !vector.IsFinite(p.Position) || !vector.IsFinite(p.Velocity) {
			st.NonFinite++
			continue
		}
		st.MaxSpeed = max(st.MaxSpeed, vector.Length(p.Velocity))
		if !s.container.Contains(p.Position, tolerance) {
			st.Escaped++
		}
	}
	return st
}

//Fields - the stats as log fields
func (st FrameStats) Fields() logrus.Fields {
	return logrus.Fields{
		"minDensity":  st.MinDensity,
		"maxDensity":  st.MaxDensity,
		"meanDensity": st.MeanDensity,
		"maxSpeed":    st.MaxSpeed,
		"escaped":     st.Escaped,
		"nonFinite":   st.NonFinite,
	}
}
