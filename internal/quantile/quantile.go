package quantile

import (
	"math"
	"sort"
)

// Quantiles summarizes the distribution of a set of values.
type Quantiles struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Summarize computes the quantiles of xs. xs is not modified.
func Summarize(xs []float64) Quantiles {
	if len(xs) == 0 {
		return Quantiles{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return Quantiles{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  Mean(sorted),
		P50:   Percentile(sorted, 0.5),
		P75:   Percentile(sorted, 0.75),
		P90:   Percentile(sorted, 0.90),
		P95:   Percentile(sorted, 0.95),
		P99:   Percentile(sorted, 0.99),
	}
}

// Mean returns the arithmetic mean of xs, NaN for no values.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := 0.0
	for i, x := range xs {
		m += (x - m) / float64(i+1)
	}
	return m
}

// Percentile returns the pctileth value of the ascending sorted values,
// interpolated with method R8 from Hyndman and Fan (1996). pctile is capped
// to [0, 1].
func Percentile(sorted []float64, pctile float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pctile <= 0:
		return sorted[0]
	case pctile >= 1:
		return sorted[len(sorted)-1]
	}

	N := float64(len(sorted))
	n := 1/3.0 + pctile*(N+1/3.0)
	kf, frac := math.Modf(n)
	k := int(kf)
	if k <= 0 {
		return sorted[0]
	} else if k >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[k-1] + frac*(sorted[k]-sorted[k-1])
}
