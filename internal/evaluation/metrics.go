package evaluation

import "math"

// RelevanceThreshold is the cosine similarity above which a retrieved passage
// counts as relevant to the question.
const RelevanceThreshold = 0.4

// Cosine returns the cosine similarity of a and b. Mismatched lengths and
// zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// precision is the share of passages whose similarity to the question
// exceeds RelevanceThreshold. No passages scores 0.
func precision(question []float32, passages [][]float32) float64 {
	if len(passages) == 0 {
		return 0
	}
	relevant := 0
	for _, p := range passages {
		if Cosine(question, p) > RelevanceThreshold {
			relevant++
		}
	}
	return float64(relevant) / float64(len(passages))
}

// Rating buckets an overall score.
func Rating(overall float64) string {
	switch {
	case overall >= 0.8:
		return "excellent"
	case overall >= 0.6:
		return "good"
	default:
		return "fair"
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
