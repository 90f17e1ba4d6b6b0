package gait

import (
	"fmt"

	"gaitspec/domain/core"
)

// DefaultPhasePoints is the canonical number of samples in a PhaseProfile,
// spanning 0-100% of the gait cycle.
const DefaultPhasePoints = 150

// Signal is a named, ordered sequence of samples for one subject/trial.
// Immutable once loaded; the loader owns it and the engine only reads it.
type Signal struct {
	Name       string
	Subject    core.SubjectID
	Task       Task
	SampleRate float64 // Hz
	Samples    []float64
}

// Duration returns the signal length in seconds
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / s.SampleRate
}

// SignalPair carries the left/right vertical contact-force channels plus
// the kinematic channels sampled on the same clock.
type SignalPair struct {
	Subject     core.SubjectID
	Task        Task
	SampleRate  float64
	ForceIpsi   []float64
	ForceContra []float64
	// Variables holds the kinematic channels to slice into strides,
	// aligned sample-for-sample with the force channels.
	Variables map[Variable][]float64
}

// Stride is one gait cycle extracted from a signal, bounded by two
// consecutive ipsilateral heel strikes.
type Stride struct {
	Subject    core.SubjectID
	Task       Task
	CycleIndex int
	// StartSample/EndSample locate the stride in the source signal.
	StartSample int
	EndSample   int
	SampleRate  float64
	// Values holds the raw variable-length samples per variable.
	Values map[Variable][]float64
}

// DurationSeconds returns the stride duration derived from sample bounds
func (s *Stride) DurationSeconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.EndSample-s.StartSample) / s.SampleRate
}

// ResampleQuality records how faithfully a stride survived phase
// interpolation. Reported in result metadata, never enforced as an error.
type ResampleQuality struct {
	RMSError          float64 `json:"rms_error"`
	RangePreservation float64 `json:"range_preservation"` // 1.0 = min/max preserved exactly
}

// PhaseProfile is the canonical representation of a stride after
// resampling: exactly Points values per variable, indexed by phase percent.
type PhaseProfile struct {
	Subject    core.SubjectID
	Task       Task
	CycleIndex int
	Points     int
	Values     map[Variable][]float64
	Quality    map[Variable]ResampleQuality
}

// NewPhaseProfile validates the length invariant for every variable present
func NewPhaseProfile(subject core.SubjectID, task Task, cycle int, points int, values map[Variable][]float64) (*PhaseProfile, error) {
	if points < 2 {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("phase profile needs at least 2 points, got %d", points),
			"increase target points")
	}
	for v, series := range values {
		if len(series) != points {
			return nil, core.NewPhaseLengthError(subject.String(), task.String(), cycle, len(series), points)
		}
		_ = v
	}
	return &PhaseProfile{
		Subject:    subject,
		Task:       task,
		CycleIndex: cycle,
		Points:     points,
		Values:     values,
		Quality:    make(map[Variable]ResampleQuality),
	}, nil
}

// ValueAtPhase returns the grid value nearest to the given phase percent.
// Lookup is deterministic: phase maps onto the interpolated grid by
// rounding to the nearest node.
func (p *PhaseProfile) ValueAtPhase(v Variable, phasePercent int) (float64, bool) {
	series, ok := p.Values[v]
	if !ok || len(series) == 0 {
		return 0, false
	}
	idx := int(float64(phasePercent)/100.0*float64(len(series)-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(series) {
		idx = len(series) - 1
	}
	return series[idx], true
}

// Variables returns the variable names present in the profile, unordered
func (p *PhaseProfile) Variables() []Variable {
	out := make([]Variable, 0, len(p.Values))
	for v := range p.Values {
		out = append(out, v)
	}
	return out
}
