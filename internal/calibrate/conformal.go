package calibrate

import (
	"math"
	"sort"
)

// conformalWidth computes the split-conformal interval half-width at
// miscoverage rate alpha from a calibration sample set.
//
// The non-conformity score is the absolute residual |label − predicted|.
// The width is the ceil((n+1)(1−α))/n empirical quantile of the scores,
// which guarantees ≥(1−α) coverage on exchangeable data. Returns ok=false
// when the sample set is empty.
func conformalWidth(samples []Sample, alpha float64) (width float64, ok bool) {
	n := len(samples)
	if n == 0 {
		return 0, false
	}

	scores := make([]float64, n)
	for i, s := range samples {
		scores[i] = math.Abs(s.Label - s.Predicted)
	}
	sort.Float64s(scores)

	rank := int(math.Ceil(float64(n+1) * (1 - alpha)))
	if rank > n {
		rank = n
	}
	if rank < 1 {
		rank = 1
	}
	return scores[rank-1], true
}
