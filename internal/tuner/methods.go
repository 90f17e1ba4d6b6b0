package tuner

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Method names a statistical range-estimation strategy. The set is closed;
// unknown names are rejected before any staging happens.
type Method string

const (
	MethodPercentile95     Method = "percentile_95"     // 2.5th - 97.5th percentile
	MethodPercentile90     Method = "percentile_90"     // 5th - 95th percentile
	MethodMean3Std         Method = "mean_3std"         // mean +/- 3 sigma
	MethodIQRExpansion     Method = "iqr_expansion"     // Q1-1.5*IQR to Q3+1.5*IQR
	MethodRobustPercentile Method = "robust_percentile" // 10th - 90th percentile
	MethodConservative     Method = "conservative"      // observed min/max +/- 5%
)

// Methods returns the supported estimation methods in stable order
func Methods() []Method {
	return []Method{
		MethodPercentile95,
		MethodPercentile90,
		MethodMean3Std,
		MethodIQRExpansion,
		MethodRobustPercentile,
		MethodConservative,
	}
}

// ParseMethod validates a method name
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown estimation method %q (supported: %v)", s, Methods())
}

// Estimate computes [min, max] bounds over the observed values using the
// chosen method. Caller is responsible for the minimum-sample-size check.
func Estimate(values []float64, method Method) (float64, float64, error) {
	switch method {
	case MethodPercentile95:
		return percentileBounds(values, 2.5, 97.5)
	case MethodPercentile90:
		return percentileBounds(values, 5, 95)
	case MethodRobustPercentile:
		return percentileBounds(values, 10, 90)
	case MethodMean3Std:
		mean, err := stats.Mean(values)
		if err != nil {
			return 0, 0, err
		}
		sd, err := stats.StandardDeviationSample(values)
		if err != nil {
			return 0, 0, err
		}
		return mean - 3*sd, mean + 3*sd, nil
	case MethodIQRExpansion:
		q1, err := stats.Percentile(values, 25)
		if err != nil {
			return 0, 0, err
		}
		q3, err := stats.Percentile(values, 75)
		if err != nil {
			return 0, 0, err
		}
		iqr := q3 - q1
		return q1 - 1.5*iqr, q3 + 1.5*iqr, nil
	case MethodConservative:
		min, err := stats.Min(values)
		if err != nil {
			return 0, 0, err
		}
		max, err := stats.Max(values)
		if err != nil {
			return 0, 0, err
		}
		margin := 0.05 * (max - min)
		if margin == 0 {
			margin = 0.05 * math.Max(math.Abs(min), 1e-9)
		}
		return min - margin, max + margin, nil
	default:
		_, err := ParseMethod(string(method))
		return 0, 0, err
	}
}

func percentileBounds(values []float64, lo, hi float64) (float64, float64, error) {
	min, err := stats.Percentile(values, lo)
	if err != nil {
		return 0, 0, err
	}
	max, err := stats.Percentile(values, hi)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}
