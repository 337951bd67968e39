package matrix

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomNormal returns a rows x cols matrix whose entries are sampled from a normal
// distribution with the given mean and standard deviation.
func RandomNormal(rows, cols int, mean, sigma float64) *Dense {
	dist := distuv.Normal{
		Mu:    mean,
		Sigma: sigma,
	}
	out := New(rows, cols)
	for i := range out.data {
		for j := range out.data[i] {
			out.data[i][j] = dist.Rand()
		}
	}
	return out
}

// RandomSymmetricPositiveDefinite returns an n x n symmetric positive definite matrix, built as
// A·Aᵀ + n·I from a normally sampled A.
func RandomSymmetricPositiveDefinite(n int, sigma float64) *Dense {
	a := RandomNormal(n, n, 0, sigma)
	// shapes are compatible by construction
	aat, _ := Mul(a, Transpose(a))
	out, _ := Add(aat, Scale(Identity(n), float64(n)))
	return out
}
