package segmenter

import (
	"github.com/montanaflynn/stats"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/internal"
)

// DefaultForceThresholdN is the stance detection threshold in newtons
const DefaultForceThresholdN = 50.0

// iqrOutlierFactor widens the quartile fence for stride duration outliers:
// durations outside [Q1 - 3*IQR, Q3 + 3*IQR] are rejected.
const iqrOutlierFactor = 3.0

// Segmenter detects stride boundaries from a vertical contact-force
// channel and produces raw variable-length cycles.
type Segmenter struct {
	thresholdN float64
	logger     *internal.Logger
}

// NewSegmenter creates a segmenter with the given force threshold
func NewSegmenter(thresholdN float64, logger *internal.Logger) *Segmenter {
	if thresholdN <= 0 {
		thresholdN = DefaultForceThresholdN
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Segmenter{thresholdN: thresholdN, logger: logger.Named("segmenter")}
}

// Segment extracts strides from the ipsilateral force channel. Candidates
// with non-positive duration are dropped before outlier filtering; duration
// outliers are rejected against the subject/task quartile fence. Returns
// ErrInsufficientData when no stride survives.
func (s *Segmenter) Segment(pair *gait.SignalPair) (*StrideSequence, error) {
	if !pair.Task.IsSupported() {
		return nil, core.NewUnknownTaskError(string(pair.Task))
	}
	if len(pair.ForceIpsi) == 0 {
		return nil, core.NewInsufficientDataError(pair.Subject.String(), pair.Task.String())
	}

	heelStrikes := s.detectHeelStrikes(pair.ForceIpsi)

	// Consecutive heel strikes delimit candidate strides. Samples before
	// the first strike and after the last are incomplete cycles and drop
	// out naturally.
	type bounds struct{ start, end int }
	candidates := make([]bounds, 0, len(heelStrikes))
	durations := make([]float64, 0, len(heelStrikes))
	for i := 0; i+1 < len(heelStrikes); i++ {
		b := bounds{start: heelStrikes[i], end: heelStrikes[i+1]}
		if b.end <= b.start {
			continue
		}
		candidates = append(candidates, b)
		durations = append(durations, float64(b.end-b.start)/pair.SampleRate)
	}

	if len(candidates) == 0 {
		return nil, core.NewInsufficientDataError(pair.Subject.String(), pair.Task.String())
	}

	// The quartile fence needs a real distribution; with fewer than four
	// candidates every duration is kept.
	lo, hi := -1.0, 1e18
	if len(durations) >= 4 {
		var err error
		lo, hi, err = durationFence(durations)
		if err != nil {
			return nil, core.NewInsufficientDataError(pair.Subject.String(), pair.Task.String())
		}
	}

	kept := make([]bounds, 0, len(candidates))
	for i, b := range candidates {
		if durations[i] < lo || durations[i] > hi {
			s.logger.Debug("dropped outlier stride for %s/%s: duration %.3fs outside [%.3f, %.3f]",
				pair.Subject, pair.Task, durations[i], lo, hi)
			continue
		}
		kept = append(kept, b)
	}

	if len(kept) == 0 {
		return nil, core.NewInsufficientDataError(pair.Subject.String(), pair.Task.String())
	}

	seq := &StrideSequence{pair: pair}
	for i, b := range kept {
		seq.bounds = append(seq.bounds, strideBounds{start: b.start, end: b.end, cycle: i})
	}
	return seq, nil
}

// detectHeelStrikes returns sample indices of swing->stance transitions
func (s *Segmenter) detectHeelStrikes(force []float64) []int {
	var strikes []int
	inStance := force[0] >= s.thresholdN
	for i := 1; i < len(force); i++ {
		stance := force[i] >= s.thresholdN
		if stance && !inStance {
			strikes = append(strikes, i)
		}
		inStance = stance
	}
	return strikes
}

// durationFence computes the [Q1 - 3*IQR, Q3 + 3*IQR] acceptance band
func durationFence(durations []float64) (float64, float64, error) {
	q1, err := stats.Percentile(durations, 25)
	if err != nil {
		return 0, 0, err
	}
	q3, err := stats.Percentile(durations, 75)
	if err != nil {
		return 0, 0, err
	}
	iqr := q3 - q1
	return q1 - iqrOutlierFactor*iqr, q3 + iqrOutlierFactor*iqr, nil
}

type strideBounds struct {
	start, end int
	cycle      int
}

// StrideSequence is a lazy, finite, consume-once sequence of strides in
// temporal order. Variable slices are materialized on Next, and the
// sequence cannot be restarted once drained.
type StrideSequence struct {
	pair   *gait.SignalPair
	bounds []strideBounds
	pos    int
}

// Len returns the number of strides remaining
func (q *StrideSequence) Len() int {
	return len(q.bounds) - q.pos
}

// Next yields the next stride, or false when the sequence is drained
func (q *StrideSequence) Next() (*gait.Stride, bool) {
	if q.pos >= len(q.bounds) {
		return nil, false
	}
	b := q.bounds[q.pos]
	q.pos++

	values := make(map[gait.Variable][]float64, len(q.pair.Variables))
	for v, series := range q.pair.Variables {
		if b.end > len(series) {
			continue // channel shorter than the force signal, skip it
		}
		values[v] = series[b.start:b.end]
	}

	return &gait.Stride{
		Subject:     q.pair.Subject,
		Task:        q.pair.Task,
		CycleIndex:  b.cycle,
		StartSample: b.start,
		EndSample:   b.end,
		SampleRate:  q.pair.SampleRate,
		Values:      values,
	}, true
}
