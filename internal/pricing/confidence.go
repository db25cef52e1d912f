package pricing

import "math"

// Confidence weights per rule. Closer analogies score higher.
const (
	sizeConfidenceWeight      = 0.9
	brandConfidenceWeight     = 0.7
	similarConfidenceWeight   = 0.5
	unknownStrengthConfidence = 0.3
	brandFullSampleSize       = 5.0
	maxCoefficientOfVariation = 0.5
	minimumConfidence         = 1e-6
)

// sizeConfidence scores a same-product estimate by how close the two pack sizes are
func sizeConfidence(siblingQty, targetQty float64) float64 {
	return clampConfidence(sizeConfidenceWeight * math.Min(siblingQty, targetQty) / math.Max(siblingQty, targetQty))
}

// brandConfidence scores a cross-brand mean by sample size and price spread.
// cv is the coefficient of variation of the sibling prices.
func brandConfidence(n int, cv float64) float64 {
	if math.IsNaN(cv) || math.IsInf(cv, 0) || cv < 0 {
		cv = 0
	}
	sample := math.Min(1, float64(n)/brandFullSampleSize)
	return clampConfidence(brandConfidenceWeight * sample * (1 - math.Min(cv, maxCoefficientOfVariation)))
}

// similarConfidence scores a similar-product estimate by the best candidate's
// relative strength difference; nil means the difference could not be computed
func similarConfidence(bestDiff *float64) float64 {
	if bestDiff == nil {
		return unknownStrengthConfidence
	}
	return clampConfidence(similarConfidenceWeight / (1 + *bestDiff))
}

// clampConfidence keeps a score inside (0,1]
func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < minimumConfidence:
		return minimumConfidence
	case c > 1:
		return 1
	default:
		return c
	}
}

// meanAndCV returns the arithmetic mean and population coefficient of variation
func meanAndCV(values []float64) (mean, cv float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean <= 0 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq/float64(len(values))) / mean
}
