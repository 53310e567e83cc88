package base

import (
	"github.com/chewxy/math32"
)

// FuncSimilarity computes the similarity between a pair of rating vectors.
// Vectors are dense rows of the rating matrix where zero means unrated.
type FuncSimilarity func(a, b []float32) float32

// CosineSimilarity computes the cosine similarity between a pair of vectors.
func CosineSimilarity(a, b []float32) float32 {
	m, n, l := float32(0), float32(0), float32(0)
	for i := range a {
		m += a[i] * a[i]
		n += b[i] * b[i]
		l += a[i] * b[i]
	}
	if m == 0 || n == 0 {
		return 0
	}
	return l / (math32.Sqrt(m) * math32.Sqrt(n))
}

// MSDSimilarity computes the Mean Squared Difference similarity between a pair of vectors.
func MSDSimilarity(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	sum := float32(0)
	for i := range a {
		sum += (a[i] - b[i]) * (a[i] - b[i])
	}
	return 1.0 / (sum/float32(len(a)) + 1)
}

// PearsonSimilarity computes the absolute Pearson correlation coefficient
// between a pair of vectors.
func PearsonSimilarity(a, b []float32) float32 {
	meanA := mean(a)
	meanB := mean(b)
	// Mean-centered cosine
	m, n, l := float32(0), float32(0), float32(0)
	for i := range a {
		ratingA := a[i] - meanA
		ratingB := b[i] - meanB
		m += ratingA * ratingA
		n += ratingB * ratingB
		l += ratingA * ratingB
	}
	if m == 0 || n == 0 {
		return 0
	}
	return math32.Abs(l) / (math32.Sqrt(m) * math32.Sqrt(n))
}

// JaccardSimilarity computes the Jaccard index between the rated supports of
// a pair of vectors.
func JaccardSimilarity(a, b []float32) float32 {
	intersect, union := float32(0), float32(0)
	for i := range a {
		if a[i] != 0 && b[i] != 0 {
			intersect++
		}
		if a[i] != 0 || b[i] != 0 {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return intersect / union
}

func mean(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	sum := float32(0)
	for _, v := range a {
		sum += v
	}
	return sum / float32(len(a))
}
