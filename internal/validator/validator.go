package validator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/domain/verdict"
	"gaitspec/internal"
	"gaitspec/internal/classifier"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/ports"
)

// Validator orchestrates segmentation, resampling and classification over
// an entire dataset and aggregates the outcome.
type Validator struct {
	segmenter *segmenter.Segmenter
	resampler *resampler.Resampler
	capacity  int64
	logger    *internal.Logger
}

// NewValidator wires the stride pipeline with a bounded worker capacity
// for the embarrassingly parallel classification step
func NewValidator(seg *segmenter.Segmenter, res *resampler.Resampler, workerCapacity int, logger *internal.Logger) *Validator {
	if workerCapacity < 1 {
		workerCapacity = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Validator{
		segmenter: seg,
		resampler: res,
		capacity:  int64(workerCapacity),
		logger:    logger.Named("validator"),
	}
}

// Validate runs the full pipeline against one dataset using the given
// committed spec snapshot. Structural failures abort with ErrDataFormat;
// segmenter and resampler failures become skip records so the remaining
// groups still run. Output is deterministic for deterministic input: the
// classification fan-out is parallel, but verdicts are reassembled in
// input order before aggregation.
func (v *Validator) Validate(ctx context.Context, ds *ports.Dataset, spec *rangespec.Version) (*verdict.DatasetValidationResult, error) {
	started := core.Now()

	profiles, skips, err := v.CollectProfiles(ds)
	if err != nil {
		return nil, err
	}

	cls := classifier.NewClassifier(spec)
	verdicts, clsSkips := v.classifyAll(ctx, cls, profiles)
	skips = append(skips, clsSkips...)

	result := aggregate(ds, spec, verdicts, skips)
	result.StartedAt = started
	result.FinishedAt = core.Now()

	v.logger.Info("dataset %s: %d/%d strides valid (%.1f%%), status %s",
		ds.ID, result.ValidStrides, result.TotalStrides, result.PassRate, result.Status)
	return result, nil
}

// CollectProfiles gathers phase profiles from both dataset shapes: already
// phase-indexed tables, and raw signals routed through segment + resample.
func (v *Validator) CollectProfiles(ds *ports.Dataset) ([]*gait.PhaseProfile, []verdict.SkipRecord, error) {
	var skips []verdict.SkipRecord
	profiles := make([]*gait.PhaseProfile, 0, len(ds.Profiles))

	// Persisted profiles must already satisfy the phase-length invariant.
	target := v.resampler.TargetPoints()
	for _, p := range ds.Profiles {
		if p.Points != target {
			return nil, nil, core.NewPhaseLengthError(
				p.Subject.String(), p.Task.String(), p.CycleIndex, p.Points, target)
		}
		profiles = append(profiles, p)
	}

	for _, pair := range ds.Signals {
		seq, err := v.segmenter.Segment(pair)
		if err != nil {
			// Per-group failure: record and keep processing siblings.
			skips = append(skips, verdict.SkipRecord{
				Subject: pair.Subject,
				Task:    string(pair.Task),
				Reason:  err.Error(),
			})
			continue
		}
		for stride, ok := seq.Next(); ok; stride, ok = seq.Next() {
			profile, err := v.resampler.Resample(stride)
			if err != nil {
				skips = append(skips, verdict.SkipRecord{
					Subject: stride.Subject,
					Task:    string(stride.Task),
					Reason:  err.Error(),
				})
				continue
			}
			profiles = append(profiles, profile)
		}
	}

	return profiles, skips, nil
}

// classifyAll fans stride classification out across the worker pool.
// Each verdict depends only on the spec snapshot and its own profile, so
// ordering is restored by index afterwards.
func (v *Validator) classifyAll(ctx context.Context, cls *classifier.Classifier, profiles []*gait.PhaseProfile) ([]verdict.StrideVerdict, []verdict.SkipRecord) {
	type slot struct {
		verdict verdict.StrideVerdict
		err     error
		ok      bool
	}
	slots := make([]slot, len(profiles))

	sem := semaphore.NewWeighted(v.capacity)
	var wg sync.WaitGroup
	for i, profile := range profiles {
		if err := sem.Acquire(ctx, 1); err != nil {
			slots[i] = slot{err: err}
			continue
		}
		wg.Add(1)
		go func(idx int, p *gait.PhaseProfile) {
			defer wg.Done()
			defer sem.Release(1)
			sv, err := cls.Classify(p)
			if err != nil {
				slots[idx] = slot{err: err}
				return
			}
			slots[idx] = slot{verdict: sv, ok: true}
		}(i, profile)
	}
	wg.Wait()

	verdicts := make([]verdict.StrideVerdict, 0, len(profiles))
	var skips []verdict.SkipRecord
	for i, s := range slots {
		if s.ok {
			verdicts = append(verdicts, s.verdict)
			continue
		}
		// Unknown task or cancelled worker: fatal for this stride only.
		skips = append(skips, verdict.SkipRecord{
			Subject: profiles[i].Subject,
			Task:    string(profiles[i].Task),
			Reason:  fmt.Sprintf("cycle %d: %v", profiles[i].CycleIndex, s.err),
		})
	}
	return verdicts, skips
}

// aggregate folds verdicts into the read-only dataset result
func aggregate(ds *ports.Dataset, spec *rangespec.Version, verdicts []verdict.StrideVerdict, skips []verdict.SkipRecord) *verdict.DatasetValidationResult {
	result := &verdict.DatasetValidationResult{
		DatasetID:    ds.ID,
		SpecVersion:  spec.ID,
		TotalStrides: len(verdicts),
		Verdicts:     verdicts,
		Skips:        skips,
		ByTask:       make(map[string]verdict.TaskStats),
		ByVariable:   make(map[string]verdict.VariableStats),
	}

	varChecked := make(map[string]int)
	varViolations := make(map[string]int)

	for _, sv := range verdicts {
		ts := result.ByTask[string(sv.Task)]
		ts.Total++
		if sv.Valid {
			result.ValidStrides++
			ts.Valid++
		}
		result.ByTask[string(sv.Task)] = ts

		for _, violation := range sv.Violations {
			varViolations[string(violation.Variable)]++
		}
		for name, checked := range sv.CheckedByVariable {
			varChecked[name] += checked
		}
	}

	for task, ts := range result.ByTask {
		if ts.Total > 0 {
			ts.PassRate = 100.0 * float64(ts.Valid) / float64(ts.Total)
		}
		result.ByTask[task] = ts
	}
	for name, checked := range varChecked {
		vs := verdict.VariableStats{Checked: checked, Violations: varViolations[name]}
		if checked > 0 {
			vs.PassRate = 100.0 * float64(checked-vs.Violations) / float64(checked)
		}
		result.ByVariable[name] = vs
	}

	if result.TotalStrides > 0 {
		result.PassRate = 100.0 * float64(result.ValidStrides) / float64(result.TotalStrides)
	}
	result.Coverage = coverage(ds.PresentVariables)

	switch {
	case result.ValidStrides == 0:
		// Zero passing strides is the only stride-level hard failure; a
		// low nonzero pass rate still passes with warnings because
		// stride filtering is the intended cleanup mechanism.
		result.Status = verdict.StatusFailed
	case result.ValidStrides < result.TotalStrides || len(skips) > 0 || result.Coverage < 1.0:
		result.Status = verdict.StatusPassedWithWarnings
	default:
		result.Status = verdict.StatusPassed
	}

	return result
}

// coverage is the fraction of the required variable set present in input
func coverage(present []gait.Variable) float64 {
	required := gait.RequiredVariables()
	if len(required) == 0 {
		return 1.0
	}
	set := make(map[gait.Variable]bool, len(present))
	for _, v := range present {
		set[v] = true
	}
	found := 0
	for _, v := range required {
		if set[v] {
			found++
		}
	}
	return float64(found) / float64(len(required))
}

// ValidateBatch validates independent datasets in parallel and joins before
// computing cross-dataset summaries. Results come back in input order.
func (v *Validator) ValidateBatch(ctx context.Context, datasets []*ports.Dataset, spec *rangespec.Version) ([]*verdict.DatasetValidationResult, error) {
	results := make([]*verdict.DatasetValidationResult, len(datasets))
	errs := make([]error, len(datasets))

	var wg sync.WaitGroup
	for i, ds := range datasets {
		wg.Add(1)
		go func(idx int, d *ports.Dataset) {
			defer wg.Done()
			r, err := v.Validate(ctx, d, spec)
			results[idx] = r
			errs[idx] = err
		}(i, ds)
	}
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", datasets[i].ID, err))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return results, fmt.Errorf("batch validation: %d dataset(s) failed structurally: %v", len(failed), failed)
	}
	return results, nil
}
