package regression

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Inference holds the classical OLS inferential statistics. Slices are
// indexed like LinearModel.Params.
type Inference struct {
	StdErrors  []float64
	TValues    []float64
	PValues    []float64
	ConfInt    [][2]float64
	FStatistic float64
	FPValue    float64
	DFModel    int
	DFResid    int
}

// LinearModel is an ordinary-least-squares fit y = b0 + b1·x1 + ... + bk·xk.
type LinearModel struct {
	Params      []float64 // intercept first
	Fitted      []float64
	Residuals   []float64
	RSquared    float64
	AdjRSquared float64
	Rank        int
	NObs        int

	// Inference is nil when the fit leaves no residual degrees of freedom.
	Inference *Inference
}

// Predict evaluates the fitted hyperplane at x (one value per independent variable).
func (m *LinearModel) Predict(x ...float64) float64 {
	y := m.Params[0]
	for i, v := range x {
		y += m.Params[i+1] * v
	}
	return y
}

// FitLinear fits OLS with an intercept. xCols holds one slice per independent
// variable, all of len(y).
func FitLinear(xCols [][]float64, y []float64) (*LinearModel, error) {
	n := len(y)
	p := len(xCols) + 1
	if err := checkInputs(xCols, y, p); err != nil {
		return nil, err
	}
	if constant(y) {
		return nil, errZeroVariance
	}

	design := designMatrix(xCols, n)
	fac, err := factorize(design)
	if err != nil {
		return nil, err
	}

	params := fac.solve(y)
	fitted := make([]float64, n)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		var f float64
		for j := 0; j < p; j++ {
			f += design.At(i, j) * params[j]
		}
		fitted[i] = f
		resid[i] = y[i] - f
	}

	ssr, sst := sumSquares(y, fitted)
	model := &LinearModel{
		Params:    params,
		Fitted:    fitted,
		Residuals: resid,
		RSquared:  clamp01(1 - ssr/sst),
		Rank:      fac.rank,
		NObs:      n,
	}

	dfResid := n - fac.rank
	dfModel := fac.rank - 1
	if dfResid <= 0 {
		model.AdjRSquared = model.RSquared
		return model, nil
	}
	model.AdjRSquared = 1 - float64(n-1)/float64(dfResid)*(1-model.RSquared)

	scale := ssr / float64(dfResid)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
	q := tdist.Quantile(0.975)
	cov := fac.covDiag()

	inf := &Inference{
		StdErrors: make([]float64, p),
		TValues:   make([]float64, p),
		PValues:   make([]float64, p),
		ConfInt:   make([][2]float64, p),
		DFModel:   dfModel,
		DFResid:   dfResid,
	}
	for j := 0; j < p; j++ {
		se := math.Sqrt(scale * cov[j])
		inf.StdErrors[j] = se
		inf.TValues[j] = params[j] / se
		inf.PValues[j] = twoSidedP(tdist, inf.TValues[j])
		inf.ConfInt[j] = [2]float64{params[j] - q*se, params[j] + q*se}
	}

	if dfModel > 0 {
		ess := sst - ssr
		inf.FStatistic = (ess / float64(dfModel)) / scale
		inf.FPValue = fSurvival(inf.FStatistic, float64(dfModel), float64(dfResid))
	} else {
		inf.FStatistic = math.NaN()
		inf.FPValue = math.NaN()
	}

	model.Inference = inf
	return model, nil
}

// twoSidedP handles the infinite t of an exact fit, which the incomplete
// beta evaluation would turn into NaN.
func twoSidedP(t distuv.StudentsT, v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case math.IsInf(v, 0):
		return 0
	}
	return math.Min(1, 2*t.Survival(math.Abs(v)))
}

func fSurvival(f, d1, d2 float64) float64 {
	switch {
	case math.IsNaN(f):
		return math.NaN()
	case math.IsInf(f, 1):
		return 0
	case f <= 0:
		return 1
	}
	return distuv.F{D1: d1, D2: d2}.Survival(f)
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
