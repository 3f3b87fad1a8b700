package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regional-stats/internal/interpretation"
	"regional-stats/internal/models"
)

const (
	gini = "Indeks Gini"
	ipm  = "Indeks Pembangunan Manusia"
)

var years5 = []int{2019, 2020, 2021, 2022, 2023}

func newTestAnalysis(src SeriesSource, categories CategoryLister, store *stubStore) *AnalysisService {
	logger, collector := testDeps()
	if store == nil {
		return NewAnalysisService(src, categories, nil, interpretation.English, logger, collector)
	}
	return NewAnalysisService(src, categories, store, interpretation.English, logger, collector)
}

type stubStore struct {
	hit         *models.AnalysisResponse
	err         error
	generation  int
	saved       int
	savedKeys   []string
	invalidated int
	onLookup    func()
}

func (s *stubStore) Lookup(_ context.Context, _, dest interface{}) (bool, string, error) {
	if s.err != nil {
		return false, "", s.err
	}
	key := fmt.Sprintf("gen%d", s.generation)
	if s.onLookup != nil {
		s.onLookup()
	}
	if s.hit == nil {
		return false, key, nil
	}
	*dest.(*models.AnalysisResponse) = *s.hit
	return true, key, nil
}

func (s *stubStore) Save(_ context.Context, key string, _ interface{}) error {
	s.saved++
	s.savedKeys = append(s.savedKeys, key)
	return s.err
}

func (s *stubStore) Invalidate(context.Context) error {
	s.invalidated++
	s.generation++
	return s.err
}

type stubCategories struct {
	categories []*models.Category
	err        error
}

func (s stubCategories) ListCategories(context.Context) ([]*models.Category, error) {
	return s.categories, s.err
}

func lineSource() *MemorySeriesSource {
	src := NewMemorySeriesSource()
	src.Add(gini, "Kota Yogyakarta", years5, []float64{1, 2, 3, 4, 5})
	src.Add(ipm, "Kota Yogyakarta", years5, []float64{2, 4, 6, 8, 10})
	return src
}

func singleRequest(regression string, cities ...string) models.AnalysisRequest {
	return models.AnalysisRequest{
		Cities:              cities,
		RegressionType:      regression,
		AnalysisType:        models.ArityUnary,
		IndependentVariable: gini,
		DependentVariable:   ipm,
	}
}

func TestAnalyze_ExactLine(t *testing.T) {
	svc := newTestAnalysis(lineSource(), nil, nil)

	resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
	require.NoError(t, err)

	assert.Equal(t, models.ModeSingleRegion, resp.AnalysisMode)
	assert.Equal(t, []string{gini}, resp.VariablesAnalyzed.Independent)
	assert.Equal(t, ipm, resp.VariablesAnalyzed.Dependent)
	assert.Equal(t, ipm, resp.CategoryNames[ipm])

	d := resp.Details
	assert.InDelta(t, 0, d.Coefficients["const"], 1e-9)
	assert.InDelta(t, 2, d.Coefficients[gini], 1e-9)
	assert.InDelta(t, 1, d.RSquared, 1e-9)
	assert.Equal(t, []string{"const", gini}, d.Terms)
	assert.Nil(t, d.Intercept)
	assert.Equal(t, years5, d.Data.Years)
	assert.Nil(t, d.RegionStatistics)
	assert.Equal(t, 5, d.TotalObservations)

	for i := range d.Data.DependentValues {
		assert.InDelta(t, d.Data.DependentValues[i], d.Data.FittedValues[i]+d.Data.Residuals[i], 1e-9)
	}

	require.NotNil(t, d.Pearson)
	assert.InDelta(t, 1, d.Pearson.Coefficient, 1e-9)
	assert.InDelta(t, 1, d.Correlations[gini][ipm], 1e-9)
	assert.Contains(t, d.Interpretation, "very strong")
	assert.Contains(t, resp.Summary, "usable for prediction")
}

func TestAnalyze_LinearInference(t *testing.T) {
	src := NewMemorySeriesSource()
	src.Add(gini, "Bandung", years5, []float64{1, 2, 3, 4, 5})
	src.Add(ipm, "Bandung", years5, []float64{2, 4, 5, 4, 5})
	svc := newTestAnalysis(src, nil, nil)

	resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Bandung"))
	require.NoError(t, err)

	d := resp.Details
	assert.InDelta(t, 0.6, d.Coefficients[gini], 1e-9)
	assert.InDelta(t, 2.2, d.Coefficients["const"], 1e-9)
	assert.InDelta(t, 0.6, d.RSquared, 1e-9)
	require.NotNil(t, d.FPValue)
	require.NotNil(t, d.PValues[gini])
	assert.InDelta(t, *d.FPValue, *d.PValues[gini], 1e-9)
	ci := d.ConfidenceIntervals[gini]
	assert.Less(t, ci[0], 0.6)
	assert.Greater(t, ci[1], 0.6)

	require.NotNil(t, d.Diagnostics)
	require.NotNil(t, d.Diagnostics.DurbinWatson)
	assert.GreaterOrEqual(t, *d.Diagnostics.DurbinWatson, 0.0)
	assert.LessOrEqual(t, *d.Diagnostics.DurbinWatson, 4.0)
}

func TestAnalyze_MultiRegionWithEmptyRegion(t *testing.T) {
	src := NewMemorySeriesSource()
	src.Add(gini, "Bandung", []int{2019, 2020, 2021, 2022}, []float64{1, 2, 3, 4})
	src.Add(ipm, "Bandung", []int{2019, 2020, 2021, 2022}, []float64{3, 5, 7, 10})
	svc := newTestAnalysis(src, nil, nil)

	resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Bandung", "Kota Bogor"))
	require.NoError(t, err)

	assert.Equal(t, models.ModeMultiRegion, resp.AnalysisMode)
	require.Len(t, resp.Details.RegionStatistics, 1)
	stat := resp.Details.RegionStatistics["Bandung"]
	assert.Equal(t, 4, stat.Observations)
	assert.InDelta(t, 6.25, stat.DependentMean, 1e-9)
	assert.Equal(t, []string{"Bandung", "Bandung", "Bandung", "Bandung"}, resp.Details.Data.Regions)
	assert.Contains(t, resp.Details.Interpretation, "REGIONAL BREAKDOWN")
}

func TestAnalyze_Errors(t *testing.T) {
	src := NewMemorySeriesSource()
	src.Add(gini, "Bandung", []int{2019, 2020}, []float64{1, 2})
	src.Add(ipm, "Bandung", []int{2021, 2022}, []float64{3, 4})
	src.Add("TPAK", "Bandung", []int{2019, 2020}, []float64{60, 60})
	svc := newTestAnalysis(src, nil, nil)

	t.Run("multi with one variable", func(t *testing.T) {
		req := models.AnalysisRequest{
			Cities:         []string{"Bandung"},
			RegressionType: models.RegressionLinear,
			AnalysisType:   models.ArityMulti,
			Variables:      []string{gini},
		}
		_, err := svc.Analyze(context.Background(), req)
		var verr *models.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "at least 2 variables required", err.Error())
	})

	t.Run("no common years", func(t *testing.T) {
		_, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Bandung"))
		var nf *models.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Contains(t, err.Error(), "no matching data")
	})

	t.Run("unknown category", func(t *testing.T) {
		req := singleRequest(models.RegressionLinear, "Bandung")
		req.DependentVariable = "Prevalensi Stunting"
		_, err := svc.Analyze(context.Background(), req)
		var nf *models.NotFoundError
		require.True(t, errors.As(err, &nf))
	})

	t.Run("constant dependent", func(t *testing.T) {
		req := singleRequest(models.RegressionLinear, "Bandung")
		req.DependentVariable = "TPAK"
		_, err := svc.Analyze(context.Background(), req)
		var cerr *models.ComputationError
		require.True(t, errors.As(err, &cerr))
	})
}

func TestAnalyze_PolynomialParabola(t *testing.T) {
	src := NewMemorySeriesSource()
	src.Add("x", "Bandung", years5, []float64{-2, -1, 0, 1, 2})
	src.Add("y", "Bandung", years5, []float64{4, 1, 0, 1, 4})
	svc := newTestAnalysis(src, nil, nil)

	req := models.AnalysisRequest{
		Cities:         []string{"Bandung"},
		RegressionType: models.RegressionNonLinear,
		AnalysisType:   models.ArityMulti,
		Variables:      []string{"x", "y"},
	}
	resp, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	d := resp.Details
	assert.InDelta(t, 1, d.RSquared, 1e-9)
	assert.InDelta(t, 1, d.Coefficients["x^2"], 1e-9)
	assert.Equal(t, []string{"1", "x", "x^2"}, d.Terms)
	require.NotNil(t, d.Intercept)
	assert.InDelta(t, 0, *d.Intercept, 1e-9)
	assert.Nil(t, d.PValues)
	assert.Nil(t, d.FPValue)
	assert.Nil(t, d.Data.Residuals)
	assert.Empty(t, d.Correlations)
	assert.NotContains(t, d.Interpretation, "significant")
}

func TestAnalyze_DisplayNamesFromStore(t *testing.T) {
	display := "Gini Ratio"
	categories := stubCategories{categories: []*models.Category{{ID: 10, Name: gini, DisplayName: &display}}}
	svc := newTestAnalysis(lineSource(), categories, nil)

	resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
	require.NoError(t, err)
	assert.Equal(t, "Gini Ratio", resp.CategoryNames[gini])
	assert.Contains(t, resp.Details.Interpretation, "Gini Ratio")

	failing := newTestAnalysis(lineSource(), stubCategories{err: errors.New("db down")}, nil)
	resp, err = failing.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
	require.NoError(t, err)
	assert.Equal(t, gini, resp.CategoryNames[gini])
}

func TestAnalyze_Cache(t *testing.T) {
	t.Run("hit skips the pipeline", func(t *testing.T) {
		store := &stubStore{hit: &models.AnalysisResponse{Summary: "cached"}}
		svc := newTestAnalysis(NewMemorySeriesSource(), nil, store)

		resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
		require.NoError(t, err)
		assert.Equal(t, "cached", resp.Summary)
		assert.Zero(t, store.saved)
	})

	t.Run("miss stores the response", func(t *testing.T) {
		store := &stubStore{}
		svc := newTestAnalysis(lineSource(), nil, store)

		_, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
		require.NoError(t, err)
		assert.Equal(t, 1, store.saved)
	})

	t.Run("cache failure degrades to a miss", func(t *testing.T) {
		store := &stubStore{err: errors.New("redis down")}
		svc := newTestAnalysis(lineSource(), nil, store)

		resp, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
		require.NoError(t, err)
		assert.InDelta(t, 1, resp.Details.RSquared, 1e-9)
		assert.Zero(t, store.saved)
	})

	t.Run("write during analysis does not refresh the new generation", func(t *testing.T) {
		store := &stubStore{}
		store.onLookup = func() { store.Invalidate(context.Background()) }
		svc := newTestAnalysis(lineSource(), nil, store)

		_, err := svc.Analyze(context.Background(), singleRequest(models.RegressionLinear, "Kota Yogyakarta"))
		require.NoError(t, err)
		assert.Equal(t, 1, store.generation)
		assert.Equal(t, []string{"gen0"}, store.savedKeys)
	})
}

func TestPredict(t *testing.T) {
	src := NewMemorySeriesSource()
	src.Add(gini, "Bandung", years5, []float64{1, 2, 3, 4, 5})
	src.Add(ipm, "Bandung", years5, []float64{3, 5, 7, 9, 11})
	svc := newTestAnalysis(src, nil, nil)

	value := 10.0
	resp, err := svc.Predict(context.Background(), models.PredictionRequest{
		City:                "Bandung",
		AnalysisType:        models.ArityUnary,
		IndependentVariable: gini,
		DependentVariable:   ipm,
		IndependentValue:    &value,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bandung", resp.City)
	assert.Equal(t, 10.0, resp.Predictions.IndependentVariable.Value)
	assert.InDelta(t, 21, resp.Predictions.DependentVariable.PredictedValue, 1e-9)
	assert.InDelta(t, 1, resp.Predictions.ConfidenceMetrics.RSquared, 1e-9)

	_, err = svc.Predict(context.Background(), models.PredictionRequest{
		City:                "Bogor",
		IndependentVariable: gini,
		DependentVariable:   ipm,
		IndependentValue:    &value,
	})
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "insufficient historical data", err.Error())

	_, err = svc.Predict(context.Background(), models.PredictionRequest{City: "Bandung", IndependentVariable: gini, DependentVariable: ipm})
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	huge := 1e308
	_, err = svc.Predict(context.Background(), models.PredictionRequest{
		City:                "Bandung",
		IndependentVariable: gini,
		DependentVariable:   ipm,
		IndependentValue:    &huge,
	})
	var cerr *models.ComputationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "predict", cerr.Op)
}
