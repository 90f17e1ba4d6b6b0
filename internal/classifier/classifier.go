package classifier

import (
	"sort"

	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/domain/verdict"
)

// Classifier evaluates a resampled stride against a committed
// specification snapshot. It only consults the representative phases, not
// every interpolated point; that is the engine's precision/performance
// trade-off.
type Classifier struct {
	spec   *rangespec.Version
	phases []int
}

// NewClassifier creates a classifier bound to one immutable spec snapshot.
// Binding a snapshot, not the live store, is what keeps per-stride
// classification free of shared state.
func NewClassifier(spec *rangespec.Version) *Classifier {
	return &Classifier{
		spec:   spec,
		phases: gait.RepresentativePhases(),
	}
}

// SpecVersion returns the snapshot version the classifier consults
func (c *Classifier) SpecVersion() *rangespec.Version {
	return c.spec
}

// Classify produces the verdict for one phase profile. A stride is valid
// iff it has zero violations across all checked (variable, phase)
// combinations. Bounds are inclusive: value == min or value == max passes.
// Combinations with no spec entry are skipped and recorded as unchecked.
func (c *Classifier) Classify(profile *gait.PhaseProfile) (verdict.StrideVerdict, error) {
	v := verdict.StrideVerdict{
		Subject:           profile.Subject,
		Task:              profile.Task,
		CycleIndex:        profile.CycleIndex,
		Valid:             true,
		CheckedByVariable: make(map[string]int),
	}

	if !profile.Task.IsSupported() {
		_, err := gait.ParseTask(string(profile.Task))
		return v, err
	}

	variables := profile.Variables()
	sort.Slice(variables, func(i, j int) bool { return variables[i] < variables[j] })

	for _, variable := range variables {
		for _, phase := range c.phases {
			value, ok := profile.ValueAtPhase(variable, phase)
			if !ok {
				continue
			}
			r, found := c.spec.Lookup(profile.Task, variable, phase)
			if !found {
				// Absence of a spec entry is not a failure; record it
				// for coverage accounting and move on.
				v.Unchecked = append(v.Unchecked, verdict.UncheckedEntry{
					Variable:     variable,
					PhasePercent: phase,
				})
				continue
			}
			v.Checked++
			v.CheckedByVariable[string(variable)]++
			if !r.Contains(value) {
				v.Violations = append(v.Violations, verdict.Violation{
					Variable:      variable,
					PhasePercent:  phase,
					Value:         value,
					ViolatedRange: r,
				})
			}
		}
	}

	v.Valid = len(v.Violations) == 0
	return v, nil
}
