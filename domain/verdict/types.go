package verdict

import (
	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
)

// DatasetStatus represents the aggregate outcome of a validation run
type DatasetStatus string

const (
	StatusPassed DatasetStatus = "passed"
	// StatusPassedWithWarnings applies whenever at least one stride passed
	// but not all did. A dataset hard-fails only on structural errors or a
	// literal zero pass count; stride-level filtering is the intended
	// mechanism for separating good data from bad within one dataset.
	StatusPassedWithWarnings DatasetStatus = "passed_with_warnings"
	StatusFailed             DatasetStatus = "failed"
)

// Violation is one failed range check inside a stride
type Violation struct {
	Variable      gait.Variable             `json:"variable"`
	PhasePercent  int                       `json:"phase_percent"`
	Value         float64                   `json:"value"`
	ViolatedRange rangespec.ValidationRange `json:"violated_range"`
}

// UncheckedEntry records a (variable, phase) combination that had no
// specification entry. Absence of a spec entry is not a failure; it is
// tracked for coverage accounting only.
type UncheckedEntry struct {
	Variable     gait.Variable `json:"variable"`
	PhasePercent int           `json:"phase_percent"`
}

// StrideVerdict is the per-stride result. Computed fresh for every
// validation run; never persisted on its own.
type StrideVerdict struct {
	Subject    core.SubjectID   `json:"subject"`
	Task       gait.Task        `json:"task"`
	CycleIndex int              `json:"cycle_index"`
	Valid      bool             `json:"valid"`
	Violations []Violation      `json:"violations,omitempty"`
	Unchecked  []UncheckedEntry `json:"unchecked,omitempty"`
	Checked    int              `json:"checked"`
	// CheckedByVariable counts representative-phase checks actually
	// performed per variable, for per-variable pass-rate aggregation.
	CheckedByVariable map[string]int `json:"checked_by_variable,omitempty"`
}

// SkipRecord captures a stride or group that could not be classified.
// Segmenter and resampler failures become skip records rather than
// aborting the whole dataset, so most checks still run.
type SkipRecord struct {
	Subject core.SubjectID `json:"subject"`
	Task    string         `json:"task"`
	Reason  string         `json:"reason"`
}

// TaskStats aggregates pass counts per task
type TaskStats struct {
	Total    int     `json:"total"`
	Valid    int     `json:"valid"`
	PassRate float64 `json:"pass_rate"`
}

// VariableStats aggregates check outcomes per variable
type VariableStats struct {
	Checked    int     `json:"checked"`
	Violations int     `json:"violations"`
	PassRate   float64 `json:"pass_rate"`
}

// DatasetValidationResult is the aggregate over all strides in a dataset.
// Created once per validation invocation; read-only afterward.
type DatasetValidationResult struct {
	DatasetID    core.DatasetID           `json:"dataset_id"`
	SpecVersion  core.VersionID           `json:"spec_version"`
	Status       DatasetStatus            `json:"status"`
	TotalStrides int                      `json:"total_strides"`
	ValidStrides int                      `json:"valid_strides"`
	PassRate     float64                  `json:"pass_rate"` // percent, 0-100
	Coverage     float64                  `json:"coverage"`  // fraction of required variables present
	ByTask       map[string]TaskStats     `json:"by_task"`
	ByVariable   map[string]VariableStats `json:"by_variable"`
	Verdicts     []StrideVerdict          `json:"verdicts"`
	Skips        []SkipRecord             `json:"skips,omitempty"`
	StartedAt    core.Timestamp           `json:"started_at"`
	FinishedAt   core.Timestamp           `json:"finished_at"`
}

// InvalidStrides returns the count of strides that failed range checks
func (r *DatasetValidationResult) InvalidStrides() int {
	return r.TotalStrides - r.ValidStrides
}
