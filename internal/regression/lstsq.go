package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"regional-stats/internal/models"
)

var machineEpsilon = math.Nextafter(1, 2) - 1

// pinv is a thin SVD of a design matrix kept around so that the
// minimum-norm solution and the unscaled covariance come from one factorization.
type pinv struct {
	svd   mat.SVD
	v     mat.Dense
	s     []float64
	rank  int
	nrows int
	ncols int
}

// factorize computes the SVD of a (rows >= cols). Singular values below
// max(rows, cols)·ε·σ_max are treated as zero, so collinear designs still
// yield the minimum-norm least-squares solution.
func factorize(a mat.Matrix) (*pinv, error) {
	r, c := a.Dims()
	p := &pinv{nrows: r, ncols: c}
	if !p.svd.Factorize(a, mat.SVDThin) {
		return nil, &models.ComputationError{Op: "fit", Message: "singular value decomposition did not converge"}
	}

	p.s = p.svd.Values(nil)
	p.svd.VTo(&p.v)

	if len(p.s) > 0 {
		tol := float64(max(r, c)) * machineEpsilon * p.s[0]
		for _, sv := range p.s {
			if sv > tol {
				p.rank++
			}
		}
	}
	return p, nil
}

// solve returns argmin ||a·x - y|| with minimal ||x||.
func (p *pinv) solve(y []float64) []float64 {
	if p.rank == 0 {
		return make([]float64, p.ncols)
	}
	var x mat.VecDense
	p.svd.SolveVecTo(&x, mat.NewVecDense(p.nrows, y), p.rank)
	return mat.Col(nil, 0, &x)
}

// covDiag returns the diagonal of pinv(aᵀa).
func (p *pinv) covDiag() []float64 {
	d := make([]float64, p.ncols)
	for i := 0; i < p.rank; i++ {
		inv := 1 / (p.s[i] * p.s[i])
		for j := 0; j < p.ncols; j++ {
			vji := p.v.At(j, i)
			d[j] += vji * vji * inv
		}
	}
	return d
}

// designMatrix builds [1 | x_1 ... x_k] from column vectors.
func designMatrix(xCols [][]float64, n int) *mat.Dense {
	a := mat.NewDense(n, len(xCols)+1, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j, col := range xCols {
			a.Set(i, j+1, col[i])
		}
	}
	return a
}

func checkInputs(xCols [][]float64, y []float64, params int) error {
	n := len(y)
	for j, col := range xCols {
		if len(col) != n {
			return &models.ComputationError{Op: "fit", Message: fmt.Sprintf("column %d has %d values, expected %d", j, len(col), n)}
		}
		if !allFinite(col) {
			return &models.ComputationError{Op: "fit", Message: fmt.Sprintf("column %d contains non-finite values", j)}
		}
	}
	if !allFinite(y) {
		return &models.ComputationError{Op: "fit", Message: "dependent variable contains non-finite values"}
	}
	if n < params {
		return &models.ComputationError{
			Op:      "fit",
			Message: fmt.Sprintf("under-determined: %d observations for %d parameters", n, params),
		}
	}
	return nil
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// sumSquares returns the residual and centered total sums of squares.
func sumSquares(y, fitted []float64) (ssr, sst float64) {
	ybar := stat.Mean(y, nil)
	for i := range y {
		e := y[i] - fitted[i]
		ssr += e * e
		d := y[i] - ybar
		sst += d * d
	}
	return ssr, sst
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var errZeroVariance = &models.ComputationError{Op: "fit", Message: "dependent variable has no variance"}
