package tuner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal"
	"gaitspec/internal/specstore"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

// DefaultMinSampleSize is the statistical minimum for automated estimation
const DefaultMinSampleSize = 30

// Tuner builds staged specification changes, predicts their impact on
// held-out datasets, and routes commits through the store's staged-commit
// protocol. Nothing short of an explicit Commit touches the live spec.
type Tuner struct {
	store     *specstore.Store
	validator *validator.Validator
	minSample int
	logger    *internal.Logger
}

// NewTuner wires a tuner against the live store and the validation pipeline
func NewTuner(store *specstore.Store, v *validator.Validator, minSample int, logger *internal.Logger) *Tuner {
	if minSample <= 0 {
		minSample = DefaultMinSampleSize
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Tuner{
		store:     store,
		validator: v,
		minSample: minSample,
		logger:    logger.Named("tuner"),
	}
}

// ManualEdit is one caller-supplied range override with its citation
type ManualEdit struct {
	Task         gait.Task
	Variable     gait.Variable
	PhasePercent int
	Min          float64
	Max          float64
	Citation     string
	Confidence   float64
}

// ProposeManual stages explicit range edits. Basic sanity (finite values,
// min < max, supported task) is checked up front; the full integrity check
// runs at commit time.
func (t *Tuner) ProposeManual(edits []ManualEdit) (*rangespec.ChangeSet, error) {
	if len(edits) == 0 {
		return nil, fmt.Errorf("no edits supplied")
	}

	changes := make([]rangespec.Change, 0, len(edits))
	for _, e := range edits {
		if !e.Task.IsSupported() {
			return nil, core.NewUnknownTaskError(string(e.Task))
		}
		if math.IsNaN(e.Min) || math.IsNaN(e.Max) || math.IsInf(e.Min, 0) || math.IsInf(e.Max, 0) {
			return nil, core.NewSpecIntegrityError(fmt.Sprintf("%s/%s@%d%%: bounds must be finite", e.Task, e.Variable, e.PhasePercent))
		}
		if e.Min >= e.Max {
			return nil, core.NewSpecIntegrityError(fmt.Sprintf("%s/%s@%d%%: min %v >= max %v", e.Task, e.Variable, e.PhasePercent, e.Min, e.Max))
		}
		changes = append(changes, rangespec.Change{
			Op: rangespec.OpSet,
			Range: rangespec.ValidationRange{
				Key: rangespec.Key{
					Task:         e.Task,
					Variable:     e.Variable,
					PhasePercent: e.PhasePercent,
				},
				Min: e.Min,
				Max: e.Max,
				Provenance: rangespec.Provenance{
					Kind:     rangespec.ProvenanceLiterature,
					Citation: e.Citation,
				},
				Confidence: e.Confidence,
			},
		})
	}

	return t.store.Stage(t.store.LiveVersion(), changes)
}

// ProposeAutomated estimates fresh bounds from reference datasets using the
// chosen method. Every (task, variable, representative phase) combination
// observed in the references gets a proposal; a combination below the
// minimum sample size fails the whole proposal with ErrInsufficientSample.
func (t *Tuner) ProposeAutomated(ctx context.Context, refs []*ports.Dataset, method Method) (*rangespec.ChangeSet, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no reference datasets supplied")
	}

	samples, err := t.gatherSamples(refs)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("reference datasets yielded no usable cycles")
	}

	keys := make([]rangespec.Key, 0, len(samples))
	for k := range samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	changes := make([]rangespec.Change, 0, len(keys))
	for _, k := range keys {
		values := samples[k]
		if len(values) < t.minSample {
			return nil, core.NewInsufficientSampleError(
				string(k.Task), string(k.Variable), k.PhasePercent, len(values), t.minSample)
		}
		lo, hi, err := Estimate(values, method)
		if err != nil {
			return nil, fmt.Errorf("estimating %s: %w", k, err)
		}
		changes = append(changes, rangespec.Change{
			Op: rangespec.OpSet,
			Range: rangespec.ValidationRange{
				Key: k,
				Min: lo,
				Max: hi,
				Provenance: rangespec.Provenance{
					Kind:    rangespec.ProvenanceStatistical,
					Method:  string(method),
					SampleN: len(values),
				},
				Confidence: confidenceFor(method),
			},
		})
	}

	t.logger.Info("automated proposal: %d ranges from %d reference dataset(s) via %s", len(changes), len(refs), method)
	return t.store.Stage(t.store.LiveVersion(), changes)
}

// gatherSamples routes reference data through the shared segment/resample
// pipeline and collects raw values per (task, variable, phase).
func (t *Tuner) gatherSamples(refs []*ports.Dataset) (map[rangespec.Key][]float64, error) {
	samples := make(map[rangespec.Key][]float64)
	for _, ref := range refs {
		profiles, skips, err := t.validator.CollectProfiles(ref)
		if err != nil {
			return nil, err
		}
		for _, skip := range skips {
			t.logger.Warn("reference dataset %s: skipped %s/%s: %s", ref.ID, skip.Subject, skip.Task, skip.Reason)
		}
		for _, p := range profiles {
			for _, variable := range p.Variables() {
				for _, phase := range gait.RepresentativePhases() {
					value, ok := p.ValueAtPhase(variable, phase)
					if !ok {
						continue
					}
					k := rangespec.Key{Task: p.Task, Variable: variable, PhasePercent: phase}
					samples[k] = append(samples[k], value)
				}
			}
		}
	}
	return samples, nil
}

// Preview reports what a staged change set would do: the proposed ranges
// plus the before/after pass-rate delta over held-out datasets, computed
// against an overlay snapshot. The live store stays untouched.
type Preview struct {
	StagingID core.StagingID     `json:"staging_id"`
	Basis     core.VersionID     `json:"basis"`
	Proposed  []rangespec.Change `json:"proposed"`
	Impact    []DatasetImpact    `json:"impact"`
}

// DatasetImpact is the predicted pass-rate movement for one held-out dataset
type DatasetImpact struct {
	DatasetID      core.DatasetID `json:"dataset_id"`
	PassRateBefore float64        `json:"pass_rate_before"`
	PassRateAfter  float64        `json:"pass_rate_after"`
	Delta          float64        `json:"delta"`
}

// PreviewImpact validates the held-out datasets twice, once against the
// live snapshot and once against the staged overlay
func (t *Tuner) PreviewImpact(ctx context.Context, cs *rangespec.ChangeSet, holdout []*ports.Dataset) (*Preview, error) {
	live := t.store.Snapshot()
	overlay := &rangespec.Version{
		ID:        core.VersionID("staged-" + cs.StagingID.String()),
		Seq:       live.Seq,
		Rationale: "staged preview",
		Ranges:    cs.Apply(live),
	}

	preview := &Preview{
		StagingID: cs.StagingID,
		Basis:     cs.Basis,
		Proposed:  cs.Changes,
	}

	for _, ds := range holdout {
		before, err := t.validator.Validate(ctx, ds, live)
		if err != nil {
			return nil, fmt.Errorf("preview before-run on %s: %w", ds.ID, err)
		}
		after, err := t.validator.Validate(ctx, ds, overlay)
		if err != nil {
			return nil, fmt.Errorf("preview after-run on %s: %w", ds.ID, err)
		}
		preview.Impact = append(preview.Impact, DatasetImpact{
			DatasetID:      ds.ID,
			PassRateBefore: before.PassRate,
			PassRateAfter:  after.PassRate,
			Delta:          after.PassRate - before.PassRate,
		})
	}

	return preview, nil
}

// Commit applies a staged change set through the store's protocol. Only
// this call, with an explicit rationale, mutates the live specification.
func (t *Tuner) Commit(ctx context.Context, cs *rangespec.ChangeSet, rationale string) (*rangespec.Version, error) {
	if rationale == "" {
		return nil, fmt.Errorf("commit requires a rationale")
	}
	return t.store.Commit(ctx, cs, rationale)
}

// confidenceFor maps a method to a nominal coverage confidence
func confidenceFor(method Method) float64 {
	switch method {
	case MethodPercentile95:
		return 0.95
	case MethodPercentile90:
		return 0.90
	case MethodMean3Std:
		return 0.997
	case MethodRobustPercentile:
		return 0.80
	case MethodIQRExpansion, MethodConservative:
		return 0.99
	default:
		return 0.95
	}
}
