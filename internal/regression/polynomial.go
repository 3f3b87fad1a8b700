package regression

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PolynomialFeatures expands columns into all degree ≤ 2 monomials in the
// canonical order: bias, each x_i, then x_i·x_j for every i ≤ j.
func PolynomialFeatures(xCols [][]float64, names []string) ([][]float64, []string) {
	n := 0
	if len(xCols) > 0 {
		n = len(xCols[0])
	}
	k := len(xCols)

	features := make([][]float64, 0, 1+k+k*(k+1)/2)
	labels := make([]string, 0, cap(features))

	bias := make([]float64, n)
	for i := range bias {
		bias[i] = 1
	}
	features = append(features, bias)
	labels = append(labels, "1")

	for j := 0; j < k; j++ {
		features = append(features, xCols[j])
		labels = append(labels, names[j])
	}

	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			col := make([]float64, n)
			for i := 0; i < n; i++ {
				col[i] = xCols[a][i] * xCols[b][i]
			}
			features = append(features, col)
			if a == b {
				labels = append(labels, names[a]+"^2")
			} else {
				labels = append(labels, names[a]+" "+names[b])
			}
		}
	}
	return features, labels
}

// PolynomialModel is a degree-2 least-squares fit. No inferential statistics
// are computed for the expanded terms.
type PolynomialModel struct {
	FeatureNames []string
	// Coefficients has one entry per feature, bias included. The bias
	// coefficient is always zero; the constant lives in Intercept.
	Coefficients []float64
	Intercept    float64
	Fitted       []float64
	Residuals    []float64
	RSquared     float64
	NObs         int
}

// Predict evaluates the polynomial at x (one value per input variable).
func (m *PolynomialModel) Predict(x ...float64) float64 {
	cols := make([][]float64, len(x))
	for i, v := range x {
		cols[i] = []float64{v}
	}
	names := make([]string, len(x))
	features, _ := PolynomialFeatures(cols, names)
	y := m.Intercept
	for j, f := range features {
		y += m.Coefficients[j] * f[0]
	}
	return y
}

// FitPolynomial fits y on the degree-2 expansion of xCols. The intercept is
// estimated by centering, so the bias feature collapses to a zero column and
// receives a zero coefficient in the minimum-norm solution.
func FitPolynomial(xCols [][]float64, names []string, y []float64) (*PolynomialModel, error) {
	n := len(y)
	k := len(xCols)
	params := 1 + k + k*(k+1)/2
	if err := checkInputs(xCols, y, params); err != nil {
		return nil, err
	}
	if constant(y) {
		return nil, errZeroVariance
	}

	features, labels := PolynomialFeatures(xCols, names)
	p := len(features)

	means := make([]float64, p)
	centered := mat.NewDense(n, p, nil)
	for j, col := range features {
		means[j] = stat.Mean(col, nil)
		for i, v := range col {
			centered.Set(i, j, v-means[j])
		}
	}
	ybar := stat.Mean(y, nil)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - ybar
	}

	fac, err := factorize(centered)
	if err != nil {
		return nil, err
	}
	coef := fac.solve(yc)
	coef[0] = 0

	intercept := ybar
	for j := range coef {
		intercept -= means[j] * coef[j]
	}

	fitted := make([]float64, n)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		f := intercept
		for j := 0; j < p; j++ {
			f += features[j][i] * coef[j]
		}
		fitted[i] = f
		resid[i] = y[i] - f
	}
	ssr, sst := sumSquares(y, fitted)

	return &PolynomialModel{
		FeatureNames: labels,
		Coefficients: coef,
		Intercept:    intercept,
		Fitted:       fitted,
		Residuals:    resid,
		RSquared:     clamp01(1 - ssr/sst),
		NObs:         n,
	}, nil
}
