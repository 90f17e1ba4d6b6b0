package comparator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

// TestKind selects the significance test applied per comparison group
type TestKind string

const (
	TestWelchT TestKind = "welch_ttest" // exactly two datasets
	TestANOVA  TestKind = "anova"       // two or more datasets
	TestAuto   TestKind = "auto"        // welch for 2, anova otherwise
)

// Config tunes a comparison run
type Config struct {
	Test TestKind
	// Alpha is the significance threshold reported alongside p-values.
	Alpha float64
	// Phases restricts the comparison; defaults to representative phases.
	Phases []int
}

// DescriptiveStats summarizes one dataset's values for one comparison key
type DescriptiveStats struct {
	DatasetID core.DatasetID `json:"dataset_id"`
	N         int            `json:"n"`
	Mean      float64        `json:"mean"`
	StdDev    float64        `json:"std_dev"`
	Median    float64        `json:"median"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
}

// EffectSize is Cohen's d between one pair of datasets
type EffectSize struct {
	DatasetA core.DatasetID `json:"dataset_a"`
	DatasetB core.DatasetID `json:"dataset_b"`
	CohenD   float64        `json:"cohen_d"`
}

// GroupComparison is the statistical comparison for one
// (task, variable, phase) key across all included datasets
type GroupComparison struct {
	Key         rangespec.Key      `json:"key"`
	TestUsed    TestKind           `json:"test_used"`
	Statistic   float64            `json:"statistic"`
	PValue      float64            `json:"p_value"`
	Significant bool               `json:"significant"`
	Descriptive []DescriptiveStats `json:"descriptive"`
	EffectSizes []EffectSize       `json:"effect_sizes"`
}

// ComparisonResult aggregates the whole cross-dataset comparison
type ComparisonResult struct {
	Datasets []core.DatasetID  `json:"datasets"`
	Excluded []core.DatasetID  `json:"excluded,omitempty"`
	Groups   []GroupComparison `json:"groups"`
	Alpha    float64           `json:"alpha"`
}

// Comparator performs cross-dataset statistical comparison on top of the
// same resampling pipeline the validator uses.
type Comparator struct {
	validator *validator.Validator
	logger    *internal.Logger
}

// NewComparator wires a comparator against the shared pipeline
func NewComparator(v *validator.Validator, logger *internal.Logger) *Comparator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Comparator{validator: v, logger: logger.Named("comparator")}
}

// Compare runs descriptive statistics, significance testing and effect-size
// computation across datasets. Datasets whose schema does not match the
// first dataset's variable/task naming are excluded with a logged warning
// rather than aborting the whole comparison.
func (c *Comparator) Compare(ctx context.Context, datasets []*ports.Dataset, cfg Config) (*ComparisonResult, error) {
	if len(datasets) < 2 {
		return nil, fmt.Errorf("comparison needs at least 2 datasets, got %d", len(datasets))
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		cfg.Alpha = 0.05
	}
	phases := cfg.Phases
	if len(phases) == 0 {
		phases = gait.RepresentativePhases()
	}

	// Gather per-dataset samples keyed by (task, variable, phase).
	type datasetSamples struct {
		id      core.DatasetID
		samples map[rangespec.Key][]float64
		schema  map[string]bool
	}
	loaded := make([]datasetSamples, 0, len(datasets))
	for _, ds := range datasets {
		profiles, _, err := c.validator.CollectProfiles(ds)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", ds.ID, err)
		}
		entry := datasetSamples{
			id:      ds.ID,
			samples: make(map[rangespec.Key][]float64),
			schema:  make(map[string]bool),
		}
		for _, p := range profiles {
			for _, variable := range p.Variables() {
				entry.schema[string(p.Task)+"|"+string(variable)] = true
				for _, phase := range phases {
					value, ok := p.ValueAtPhase(variable, phase)
					if !ok {
						continue
					}
					k := rangespec.Key{Task: p.Task, Variable: variable, PhasePercent: phase}
					entry.samples[k] = append(entry.samples[k], value)
				}
			}
		}
		loaded = append(loaded, entry)
	}

	result := &ComparisonResult{Alpha: cfg.Alpha}

	// Schema check against the first dataset.
	reference := loaded[0]
	included := []datasetSamples{reference}
	result.Datasets = append(result.Datasets, reference.id)
	for _, entry := range loaded[1:] {
		if !sameSchema(reference.schema, entry.schema) {
			c.logger.Warn("dataset %s excluded from comparison: variable/task naming mismatch", entry.id)
			result.Excluded = append(result.Excluded, entry.id)
			continue
		}
		included = append(included, entry)
		result.Datasets = append(result.Datasets, entry.id)
	}
	if len(included) < 2 {
		return nil, fmt.Errorf("fewer than 2 schema-compatible datasets remain after exclusion")
	}

	keys := make([]rangespec.Key, 0, len(reference.samples))
	for k := range reference.samples {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		groups := make([][]float64, 0, len(included))
		descriptive := make([]DescriptiveStats, 0, len(included))
		ids := make([]core.DatasetID, 0, len(included))
		for _, entry := range included {
			values := entry.samples[k]
			if len(values) < 2 {
				continue
			}
			groups = append(groups, values)
			descriptive = append(descriptive, describe(entry.id, values))
			ids = append(ids, entry.id)
		}
		if len(groups) < 2 {
			continue
		}

		gc := GroupComparison{Key: k, Descriptive: descriptive}
		test := cfg.Test
		if test == "" || test == TestAuto {
			if len(groups) == 2 {
				test = TestWelchT
			} else {
				test = TestANOVA
			}
		}
		switch test {
		case TestWelchT:
			gc.TestUsed = TestWelchT
			gc.Statistic, gc.PValue = welchTTest(groups[0], groups[1])
		case TestANOVA:
			gc.TestUsed = TestANOVA
			gc.Statistic, gc.PValue = oneWayANOVA(groups)
		default:
			return nil, fmt.Errorf("unknown test kind %q", cfg.Test)
		}
		gc.Significant = gc.PValue < cfg.Alpha

		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				gc.EffectSizes = append(gc.EffectSizes, EffectSize{
					DatasetA: ids[i],
					DatasetB: ids[j],
					CohenD:   cohenD(groups[i], groups[j]),
				})
			}
		}
		result.Groups = append(result.Groups, gc)
	}

	return result, nil
}

func sameSchema(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func describe(id core.DatasetID, values []float64) DescriptiveStats {
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviationSample(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	return DescriptiveStats{
		DatasetID: id,
		N:         len(values),
		Mean:      mean,
		StdDev:    sd,
		Median:    median,
		Min:       min,
		Max:       max,
	}
}

// welchTTest computes Welch's t-statistic and an exact two-tailed p-value
// from the Student's t-distribution with Welch-Satterthwaite degrees of
// freedom
func welchTTest(a, b []float64) (float64, float64) {
	n1, n2 := float64(len(a)), float64(len(b))
	mean1, _ := stats.Mean(a)
	mean2, _ := stats.Mean(b)
	var1 := sampleVariance(a, mean1)
	var2 := sampleVariance(b, mean2)

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		return 0, 1.0
	}
	t := (mean1 - mean2) / se

	df := math.Pow(var1/n1+var2/n2, 2) /
		(math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))
	if df <= 0 || math.IsNaN(df) {
		return t, 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - tDist.CDF(math.Abs(t)))
	return t, clampP(p)
}

// oneWayANOVA computes the F-statistic and p-value across k groups
func oneWayANOVA(groups [][]float64) (float64, float64) {
	k := len(groups)
	total := 0
	var grandSum float64
	for _, g := range groups {
		total += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	if total <= k || k < 2 {
		return 0, 1.0
	}
	grandMean := grandSum / float64(total)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		mean, _ := stats.Mean(g)
		ssBetween += float64(len(g)) * (mean - grandMean) * (mean - grandMean)
		for _, v := range g {
			ssWithin += (v - mean) * (v - mean)
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)
	if ssWithin == 0 {
		return math.Inf(1), 0.0
	}
	f := (ssBetween / df1) / (ssWithin / df2)

	fDist := distuv.F{D1: df1, D2: df2}
	return f, clampP(1 - fDist.CDF(f))
}

// cohenD computes Cohen's d with pooled standard deviation
func cohenD(a, b []float64) float64 {
	n1, n2 := float64(len(a)), float64(len(b))
	mean1, _ := stats.Mean(a)
	mean2, _ := stats.Mean(b)
	var1 := sampleVariance(a, mean1)
	var2 := sampleVariance(b, mean2)

	pooled := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))
	if pooled == 0 {
		return 0
	}
	return (mean1 - mean2) / pooled
}

func sampleVariance(data []float64, mean float64) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(data)-1)
}

func clampP(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
