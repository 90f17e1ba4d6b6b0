package resampler

import (
	"fmt"
	"math"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
)

// Resampler interpolates raw variable-length strides onto the canonical
// fixed phase grid. Deterministic; no randomness anywhere.
type Resampler struct {
	targetPoints int
}

// NewResampler creates a resampler targeting the given grid size
// (gait.DefaultPhasePoints when zero)
func NewResampler(targetPoints int) *Resampler {
	if targetPoints == 0 {
		targetPoints = gait.DefaultPhasePoints
	}
	return &Resampler{targetPoints: targetPoints}
}

// TargetPoints returns the configured phase grid size
func (r *Resampler) TargetPoints() int {
	return r.targetPoints
}

// Resample maps each variable's samples linearly onto targetPoints evenly
// spaced positions spanning 0-100% and linearly interpolates between
// original samples. Boundary values are preserved exactly. Fails with
// ErrDataFormat when any variable has fewer than 2 samples.
func (r *Resampler) Resample(stride *gait.Stride) (*gait.PhaseProfile, error) {
	if r.targetPoints < 2 {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("target points %d below minimum 2", r.targetPoints),
			"configure RESAMPLE_POINTS >= 2")
	}

	values := make(map[gait.Variable][]float64, len(stride.Values))
	quality := make(map[gait.Variable]gait.ResampleQuality, len(stride.Values))

	for variable, raw := range stride.Values {
		if len(raw) < 2 {
			return nil, core.NewDataFormatError(
				fmt.Sprintf("subject %s task %s cycle %d variable %s: %d sample(s), need at least 2",
					stride.Subject, stride.Task, stride.CycleIndex, variable, len(raw)),
				"check data collection")
		}
		resampled := interpolate(raw, r.targetPoints)
		values[variable] = resampled
		quality[variable] = assessQuality(raw, resampled)
	}

	profile, err := gait.NewPhaseProfile(stride.Subject, stride.Task, stride.CycleIndex, r.targetPoints, values)
	if err != nil {
		return nil, err
	}
	profile.Quality = quality
	return profile, nil
}

// interpolate linearly maps raw samples onto n evenly spaced positions.
// Positions 0 and n-1 coincide with the first and last raw sample, so the
// boundary values carry over bit-identically.
func interpolate(raw []float64, n int) []float64 {
	out := make([]float64, n)
	out[0] = raw[0]
	out[n-1] = raw[len(raw)-1]

	span := float64(len(raw) - 1)
	for i := 1; i < n-1; i++ {
		pos := float64(i) / float64(n-1) * span
		lo := int(pos)
		frac := pos - float64(lo)
		if lo+1 >= len(raw) {
			out[i] = raw[len(raw)-1]
			continue
		}
		out[i] = raw[lo] + frac*(raw[lo+1]-raw[lo])
	}
	return out
}

// assessQuality computes resampling fidelity metadata: RMS error of the
// resampled curve re-evaluated at original sample positions, and how much
// of the original value range the resampled curve preserves. Reported for
// downstream quality accounting, never enforced as an error.
func assessQuality(raw, resampled []float64) gait.ResampleQuality {
	// Reconstruct values at the original grid from the resampled curve.
	var sumSq float64
	span := float64(len(resampled) - 1)
	for i, orig := range raw {
		pos := float64(i) / float64(len(raw)-1) * span
		lo := int(pos)
		frac := pos - float64(lo)
		var rec float64
		if lo+1 >= len(resampled) {
			rec = resampled[len(resampled)-1]
		} else {
			rec = resampled[lo] + frac*(resampled[lo+1]-resampled[lo])
		}
		diff := rec - orig
		sumSq += diff * diff
	}
	rms := math.Sqrt(sumSq / float64(len(raw)))

	rawMin, rawMax := minMax(raw)
	resMin, resMax := minMax(resampled)
	preservation := 1.0
	if rawMax > rawMin {
		preservation = (resMax - resMin) / (rawMax - rawMin)
	}

	return gait.ResampleQuality{
		RMSError:          rms,
		RangePreservation: preservation,
	}
}

func minMax(data []float64) (float64, float64) {
	min, max := data[0], data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
