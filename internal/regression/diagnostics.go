package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the correlation coefficient of x and y with its two-sided
// p-value. ok is false when either series is constant or shorter than 2.
func Pearson(x, y []float64) (r, p float64, ok bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0, 0, false
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, 0, false
	}
	r = math.Max(-1, math.Min(1, r))

	df := float64(n - 2)
	switch {
	case n == 2:
		// two points always lie on a line
		p = 1
	case math.Abs(r) == 1:
		p = 0
	default:
		t := r * math.Sqrt(df/(1-r*r))
		p = twoSidedP(distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}, t)
	}
	return r, p, true
}

// CorrelationMatrix computes pairwise Pearson correlations between named
// columns. Pairs involving a constant column are left out.
func CorrelationMatrix(names []string, cols [][]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(names))
	for i, a := range names {
		for j, b := range names {
			if j < i {
				continue
			}
			r := stat.Correlation(cols[i], cols[j], nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			if i == j {
				r = 1
			}
			if out[a] == nil {
				out[a] = make(map[string]float64)
			}
			if out[b] == nil {
				out[b] = make(map[string]float64)
			}
			out[a][b] = r
			out[b][a] = r
		}
	}
	return out
}

// DurbinWatson computes Σ(e_t − e_{t−1})² / Σe_t², in [0, 4].
func DurbinWatson(resid []float64) (float64, bool) {
	if len(resid) < 2 {
		return 0, false
	}
	var num, den float64
	for t, e := range resid {
		den += e * e
		if t > 0 {
			d := e - resid[t-1]
			num += d * d
		}
	}
	if den == 0 {
		return 0, false
	}
	return math.Max(0, math.Min(4, num/den)), true
}

// BreuschPagan runs the studentized (Koenker) test: LM = n·R² of the squared
// residuals regressed on the design, χ² with k degrees of freedom where k is
// the number of regressors excluding the constant.
func BreuschPagan(resid []float64, xCols [][]float64) (lm, p float64, ok bool) {
	n := len(resid)
	k := len(xCols)
	if k == 0 || n <= k+1 {
		return 0, 0, false
	}
	e2 := make([]float64, n)
	for i, e := range resid {
		e2[i] = e * e
	}
	aux, err := FitLinear(xCols, e2)
	if err != nil {
		return 0, 0, false
	}
	lm = float64(n) * aux.RSquared
	p = distuv.ChiSquared{K: float64(k)}.Survival(lm)
	if math.IsNaN(p) {
		return 0, 0, false
	}
	return lm, p, true
}
