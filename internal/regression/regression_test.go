package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regional-stats/internal/models"
)

const tol = 1e-9

func TestFitLinear_ExactLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	m, err := FitLinear([][]float64{x}, y)
	require.NoError(t, err)

	assert.InDelta(t, 0, m.Params[0], 1e-8)
	assert.InDelta(t, 2, m.Params[1], 1e-8)
	assert.InDelta(t, 1, m.RSquared, tol)
	assert.Equal(t, 2, m.Rank)
	assert.InDelta(t, 12, m.Predict(6), 1e-8)
}

func TestFitLinear_TextbookExample(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}

	m, err := FitLinear([][]float64{x}, y)
	require.NoError(t, err)
	require.NotNil(t, m.Inference)
	inf := m.Inference

	assert.InDelta(t, 2.2, m.Params[0], tol)
	assert.InDelta(t, 0.6, m.Params[1], tol)
	assert.InDelta(t, 0.6, m.RSquared, tol)
	assert.InDelta(t, 1-4.0/3.0*0.4, m.AdjRSquared, tol)

	assert.InDelta(t, math.Sqrt(0.88), inf.StdErrors[0], tol)
	assert.InDelta(t, math.Sqrt(0.08), inf.StdErrors[1], tol)
	assert.InDelta(t, 0.6/math.Sqrt(0.08), inf.TValues[1], 1e-8)
	assert.InDelta(t, 4.5, inf.FStatistic, 1e-8)
	assert.Equal(t, 1, inf.DFModel)
	assert.Equal(t, 3, inf.DFResid)

	// with one regressor the F test and the slope t test agree
	assert.InDelta(t, inf.PValues[1], inf.FPValue, 1e-9)
	assert.True(t, inf.FPValue > 0.12 && inf.FPValue < 0.13, "f p-value %v", inf.FPValue)

	assert.InDelta(t, -0.3001, inf.ConfInt[1][0], 1e-3)
	assert.InDelta(t, 1.5001, inf.ConfInt[1][1], 1e-3)
}

func TestFitLinear_FittedPlusResidualsIsY(t *testing.T) {
	x1 := []float64{3.1, 4.7, 2.2, 8.9, 5.5, 6.1, 7.3}
	x2 := []float64{10, 12, 9, 15, 11, 14, 13}
	y := []float64{20.5, 25.1, 18.2, 40.3, 28.8, 33.0, 35.9}

	m, err := FitLinear([][]float64{x1, x2}, y)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, y[i], m.Fitted[i]+m.Residuals[i], tol)
	}
	assert.GreaterOrEqual(t, m.RSquared, 0.0)
	assert.LessOrEqual(t, m.RSquared, 1.0)
	assert.Len(t, m.Params, 3)
}

func TestFitLinear_RSquaredEqualsCorrelationSquared(t *testing.T) {
	cases := []struct {
		name string
		x, y []float64
	}{
		{"positive", []float64{1, 2, 3, 4, 5, 6}, []float64{1.2, 1.9, 3.4, 3.8, 5.5, 5.9}},
		{"negative", []float64{10, 20, 30, 40}, []float64{8, 7.5, 5, 1}},
		{"two points", []float64{1, 3}, []float64{4, 9}},
		{"weak", []float64{1, 2, 3, 4, 5, 6, 7}, []float64{5, 3, 6, 2, 7, 4, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := FitLinear([][]float64{tc.x}, tc.y)
			require.NoError(t, err)
			r, _, ok := Pearson(tc.x, tc.y)
			require.True(t, ok)
			assert.InDelta(t, r*r, m.RSquared, 1e-9)
		})
	}
}

func TestFitLinear_NoResidualDegreesOfFreedom(t *testing.T) {
	m, err := FitLinear([][]float64{{1, 3}}, []float64{4, 9})
	require.NoError(t, err)
	assert.Nil(t, m.Inference)
	assert.InDelta(t, 1, m.RSquared, tol)
}

func TestFitLinear_CollinearReturnsMinimumNorm(t *testing.T) {
	x1 := []float64{1, 2, 3, 4, 5}
	x2 := []float64{2, 4, 6, 8, 10}
	y := []float64{3.1, 4.9, 7.2, 8.8, 11.1}

	m, err := FitLinear([][]float64{x1, x2}, y)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rank)
	for _, p := range m.Params {
		assert.False(t, math.IsNaN(p) || math.IsInf(p, 0))
	}

	simple, err := FitLinear([][]float64{x1}, y)
	require.NoError(t, err)
	assert.InDelta(t, simple.Params[1], m.Params[1]+2*m.Params[2], 1e-8)
	// minimum norm splits the slope along the (1, 2) direction
	assert.InDelta(t, 2*m.Params[1], m.Params[2], 1e-8)
	assert.InDelta(t, simple.RSquared, m.RSquared, 1e-9)
}

func TestFitLinear_Errors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{"under-determined", [][]float64{{1, 2}, {3, 5}}, []float64{1, 2}},
		{"constant dependent", [][]float64{{1, 2, 3}}, []float64{4, 4, 4}},
		{"length mismatch", [][]float64{{1, 2, 3}}, []float64{1, 2}},
		{"non-finite", [][]float64{{1, math.NaN(), 3}}, []float64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitLinear(tt.x, tt.y)
			var ce *models.ComputationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestPolynomialFeatures_Order(t *testing.T) {
	a := []float64{2, 3}
	b := []float64{5, 7}

	features, names := PolynomialFeatures([][]float64{a, b}, []string{"a", "b"})

	assert.Equal(t, []string{"1", "a", "b", "a^2", "a b", "b^2"}, names)
	assert.Equal(t, []float64{1, 1}, features[0])
	assert.Equal(t, []float64{4, 9}, features[3])
	assert.Equal(t, []float64{10, 21}, features[4])
	assert.Equal(t, []float64{25, 49}, features[5])
}

func TestFitPolynomial_Parabola(t *testing.T) {
	x := []float64{-2, -1, 0, 1, 2}
	y := []float64{4, 1, 0, 1, 4}

	m, err := FitPolynomial([][]float64{x}, []string{"x"}, y)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "x", "x^2"}, m.FeatureNames)
	assert.InDelta(t, 1, m.RSquared, tol)
	assert.Equal(t, 0.0, m.Coefficients[0])
	assert.InDelta(t, 0, m.Coefficients[1], 1e-9)
	assert.InDelta(t, 1, m.Coefficients[2], 1e-9)
	assert.InDelta(t, 0, m.Intercept, 1e-9)
	assert.InDelta(t, 9, m.Predict(3), 1e-8)
}

func TestFitPolynomial_UnderDetermined(t *testing.T) {
	_, err := FitPolynomial([][]float64{{1, 2}}, []string{"x"}, []float64{1, 5})
	var ce *models.ComputationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "under-determined")
}

func TestFitPolynomial_RSquaredClamped(t *testing.T) {
	x1 := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	x2 := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	y := []float64{2, 7, 1, 8, 2, 8, 1, 8}

	m, err := FitPolynomial([][]float64{x1, x2}, []string{"a", "b"}, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.RSquared, 0.0)
	assert.LessOrEqual(t, m.RSquared, 1.0)
	for i := range y {
		assert.InDelta(t, y[i], m.Fitted[i]+m.Residuals[i], tol)
	}
}

func TestPearson(t *testing.T) {
	r, p, ok := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})
	require.True(t, ok)
	assert.InDelta(t, 6/math.Sqrt(60), r, tol)
	assert.True(t, p > 0.12 && p < 0.13, "p = %v", p)

	_, p, ok = Pearson([]float64{1, 2}, []float64{3, 1})
	require.True(t, ok)
	assert.Equal(t, 1.0, p)

	_, _, ok = Pearson([]float64{1, 2, 3}, []float64{7, 7, 7})
	assert.False(t, ok)
}

func TestCorrelationMatrix(t *testing.T) {
	names := []string{"a", "b", "c"}
	cols := [][]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8.5},
		{5, 5, 5, 5},
	}

	m := CorrelationMatrix(names, cols)

	assert.Equal(t, 1.0, m["a"]["a"])
	assert.InDelta(t, m["a"]["b"], m["b"]["a"], 0)
	assert.True(t, m["a"]["b"] > 0.99)
	_, hasC := m["c"]
	assert.False(t, hasC)
	_, hasAC := m["a"]["c"]
	assert.False(t, hasAC)
}

func TestDurbinWatson(t *testing.T) {
	dw, ok := DurbinWatson([]float64{-0.8, 0.6, 1.0, -0.6, -0.2})
	require.True(t, ok)
	assert.InDelta(t, 4.84/2.4, dw, tol)

	_, ok = DurbinWatson([]float64{0, 0, 0})
	assert.False(t, ok)

	for _, resid := range [][]float64{
		{1, -1, 1, -1, 1, -1},
		{1, 1, 1, 1, 1, 1},
		{0.3, -2.1, 0.7, 1.9, -0.4},
	} {
		dw, ok := DurbinWatson(resid)
		require.True(t, ok)
		assert.GreaterOrEqual(t, dw, 0.0)
		assert.LessOrEqual(t, dw, 4.0)
	}
}

func TestBreuschPagan(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	resid := []float64{0.1, -0.2, 0.4, -0.5, 0.9, -1.1, 1.6, -1.8, 2.4, -2.7}

	lm, p, ok := BreuschPagan(resid, [][]float64{x})
	require.True(t, ok)
	assert.Greater(t, lm, 0.0)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.05)

	_, _, ok = BreuschPagan([]float64{0.1, -0.1}, [][]float64{{1, 2}})
	assert.False(t, ok)
}
