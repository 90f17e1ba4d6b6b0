package rangespec

import (
	"fmt"
	"math"
	"sort"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
)

// ProvenanceKind records where a range came from
type ProvenanceKind string

const (
	ProvenanceLiterature  ProvenanceKind = "literature"
	ProvenanceStatistical ProvenanceKind = "statistical"
)

// Provenance documents the origin of a validation range: a literature
// citation, or the statistical method and reference data that produced it.
type Provenance struct {
	Kind     ProvenanceKind `json:"kind"`
	Citation string         `json:"citation,omitempty"`
	Method   string         `json:"method,omitempty"`
	SampleN  int            `json:"sample_n,omitempty"`
}

// Key uniquely identifies a validation range
type Key struct {
	Task         gait.Task     `json:"task"`
	Variable     gait.Variable `json:"variable"`
	PhasePercent int           `json:"phase_percent"`
}

// String renders the key for error messages and logs
func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%d%%", k.Task, k.Variable, k.PhasePercent)
}

// ValidationRange is an immutable acceptance interval for one
// (task, variable, phase) combination. Bounds are inclusive.
type ValidationRange struct {
	Key        Key        `json:"key"`
	Min        float64    `json:"min"`
	Max        float64    `json:"max"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence"`
}

// Validate checks the basic range invariants
func (r ValidationRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return core.NewSpecIntegrityError(fmt.Sprintf("%s: bounds must be finite, got [%v, %v]", r.Key, r.Min, r.Max))
	}
	if r.Min >= r.Max {
		return core.NewSpecIntegrityError(fmt.Sprintf("%s: min %v >= max %v", r.Key, r.Min, r.Max))
	}
	return nil
}

// Contains tests a value against the range with inclusive bounds
func (r ValidationRange) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// Version is one committed state of the specification. Immutable; old
// versions are retained for audit and rollback.
type Version struct {
	ID          core.VersionID          `json:"id"`
	Seq         int                     `json:"seq"`
	Rationale   string                  `json:"rationale"`
	CommittedAt core.Timestamp          `json:"committed_at"`
	Ranges      map[Key]ValidationRange `json:"-"`
	Fingerprint core.SpecFingerprint    `json:"fingerprint"`
}

// Lookup returns the range for a key, if present
func (v *Version) Lookup(task gait.Task, variable gait.Variable, phase int) (ValidationRange, bool) {
	r, ok := v.Ranges[Key{Task: task, Variable: variable, PhasePercent: phase}]
	return r, ok
}

// SortedKeys returns the range keys in deterministic order
func (v *Version) SortedKeys() []Key {
	keys := make([]Key, 0, len(v.Ranges))
	for k := range v.Ranges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Task != keys[j].Task {
			return keys[i].Task < keys[j].Task
		}
		if keys[i].Variable != keys[j].Variable {
			return keys[i].Variable < keys[j].Variable
		}
		return keys[i].PhasePercent < keys[j].PhasePercent
	})
	return keys
}

// ComputeFingerprint hashes the version's range content in key order
func (v *Version) ComputeFingerprint() core.SpecFingerprint {
	parts := make(map[string]interface{}, len(v.Ranges))
	for _, k := range v.SortedKeys() {
		r := v.Ranges[k]
		parts[k.String()] = fmt.Sprintf("%v|%v|%s|%s", r.Min, r.Max, r.Provenance.Kind, r.Provenance.Citation)
	}
	return core.SpecFingerprint(core.ComputeFingerprint(parts))
}

// ChangeOp distinguishes staged change operations
type ChangeOp string

const (
	OpSet    ChangeOp = "set"    // add or replace a range
	OpDelete ChangeOp = "delete" // remove a range
)

// Change is a single staged edit to the specification
type Change struct {
	Op    ChangeOp        `json:"op"`
	Range ValidationRange `json:"range"`
}

// ChangeSet is a batch of edits staged against a specific live version.
// Commit applies all of it or none of it.
type ChangeSet struct {
	StagingID core.StagingID `json:"staging_id"`
	Basis     core.VersionID `json:"basis"`
	Changes   []Change       `json:"changes"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// Apply produces the range map that would result from committing the
// change set on top of the given version. The input version is not touched.
func (cs *ChangeSet) Apply(base *Version) map[Key]ValidationRange {
	next := make(map[Key]ValidationRange, len(base.Ranges)+len(cs.Changes))
	for k, r := range base.Ranges {
		next[k] = r
	}
	for _, c := range cs.Changes {
		switch c.Op {
		case OpSet:
			next[c.Range.Key] = c.Range
		case OpDelete:
			delete(next, c.Range.Key)
		}
	}
	return next
}

// CheckIntegrity verifies that a candidate range map is internally
/// consistent: all bounds valid, and every supported task covered at every
// representative phase for every required variable. Returns a single
// ErrSpecIntegrity listing all gaps, or nil.
func CheckIntegrity(ranges map[Key]ValidationRange, supportedTasks []gait.Task) error {
	var problems []string
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for _, task := range supportedTasks {
		for _, variable := range gait.RequiredVariables() {
			for _, phase := range gait.RepresentativePhases() {
				k := Key{Task: task, Variable: variable, PhasePercent: phase}
				if _, ok := ranges[k]; !ok {
					problems = append(problems, fmt.Sprintf("missing entry %s", k))
				}
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return core.NewSpecIntegrityError(fmt.Sprintf("%d problem(s): %v", len(problems), problems))
	}
	return nil
}
