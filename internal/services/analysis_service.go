package services

import (
	"context"
	"errors"
	"math"
	"time"

	"regional-stats/internal/cache"
	"regional-stats/internal/interpretation"
	"regional-stats/internal/models"
	"regional-stats/internal/regression"
	"regional-stats/internal/taxonomy"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// interceptTerm names the intercept in linear coefficient maps.
const interceptTerm = "const"

// CategoryLister resolves display names for analyzed variables.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

// AnalysisService runs the panel → fit → diagnostics → interpretation
// pipeline and the single-variable predictor.
type AnalysisService struct {
	panels     *PanelBuilder
	categories CategoryLister
	registry   *taxonomy.Registry
	cache      cache.Store
	language   interpretation.Language
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewAnalysisService creates an analysis service. categories and store may
// be nil; the embedded taxonomy and a no-op cache are used instead.
func NewAnalysisService(source SeriesSource, categories CategoryLister, store cache.Store, language interpretation.Language, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisService {
	if store == nil {
		store = cache.NoopStore{}
	}
	if !interpretation.Supported(language) {
		language = interpretation.English
	}
	return &AnalysisService{
		panels:     NewPanelBuilder(source),
		categories: categories,
		registry:   taxonomy.Default(),
		cache:      store,
		language:   language,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// Analyze validates req, fits the requested model and renders the response.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordAnalysis(req.Mode(), req.RegressionType, "invalid")
		return nil, err
	}
	if req.Language == "" {
		req.Language = string(s.language)
	}

	var cached models.AnalysisResponse
	hit, cacheKey := s.lookupCache(ctx, req, &cached)
	if hit {
		s.metrics.RecordAnalysis(req.Mode(), req.RegressionType, "cached")
		return &cached, nil
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration.WithLabelValues(req.RegressionType))
	s.logger.Info(ctx, "[ANALYSIS_START] Running analysis", logging.Fields{
		"regions":         req.Cities,
		"regression_type": req.RegressionType,
		"analysis_type":   req.AnalysisType,
		"variables":       req.VariableNames(),
	})

	resp, err := s.analyze(ctx, req)
	duration := timer.ObserveDuration()
	s.metrics.RecordAnalysis(req.Mode(), req.RegressionType, outcomeOf(err))
	if err != nil {
		s.logger.Warn(ctx, "[ANALYSIS_FAILED] Analysis did not complete", logging.Fields{
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		})
		return nil, err
	}

	s.logger.Info(ctx, "[ANALYSIS_COMPLETE] Analysis completed", logging.Fields{
		"observations": resp.Details.TotalObservations,
		"r_squared":    resp.Details.RSquared,
		"duration_ms":  duration.Milliseconds(),
	})

	s.saveCache(ctx, cacheKey, resp)
	return resp, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	regions, err := req.RegionKeys()
	if err != nil {
		return nil, err
	}

	variables := req.VariableNames()
	independents := req.Independents()
	dependent := req.Dependent()

	panel, err := s.panels.Build(ctx, variables, regions, req.Years(), 2)
	if err != nil {
		return nil, err
	}
	s.metrics.PanelRows.Observe(float64(len(panel.Rows)))

	names := s.categoryNames(ctx, variables)
	display := func(v string) string { return names[v] }

	xCols := panel.Columns(independents)
	y := panel.Column(dependent)

	resp := &models.AnalysisResponse{
		AnalysisMode:   req.Mode(),
		Regions:        req.Cities,
		RegressionType: req.RegressionType,
		AnalysisType:   req.AnalysisType,
		VariablesAnalyzed: models.VariablesAnalyzed{
			Independent: independents,
			Dependent:   dependent,
		},
		CategoryNames: names,
	}

	in := interpretation.Input{
		Mode: interpretation.Mode{
			MultiRegion: req.Mode() == models.ModeMultiRegion,
			Polynomial:  req.RegressionType == models.RegressionNonLinear,
		},
		Dependent:         display(dependent),
		Regions:           req.Cities,
		TotalObservations: len(panel.Rows),
	}
	for _, v := range independents {
		in.Independents = append(in.Independents, display(v))
	}

	details := &resp.Details
	details.TotalObservations = len(panel.Rows)
	details.Data = models.AnalysisData{
		Years:             panel.Years(),
		IndependentValues: make(map[string][]float64, len(independents)),
		DependentValues:   y,
	}
	for i, v := range independents {
		details.Data.IndependentValues[v] = xCols[i]
	}
	if in.Mode.MultiRegion {
		details.Data.Regions = panel.RegionLabels()
		details.RegionStatistics = make(map[string]models.RegionStatistic)
		for _, rs := range regionSummaries(panel, dependent) {
			details.RegionStatistics[rs.Region] = models.RegionStatistic{Observations: rs.Observations, DependentMean: rs.DependentMean}
			in.RegionStats = append(in.RegionStats, rs)
		}
	}

	if in.Mode.Polynomial {
		if err := s.fillPolynomial(details, &in, xCols, independents, y); err != nil {
			return nil, err
		}
	} else {
		if err := s.fillLinear(details, &in, panel, xCols, independents, y, display); err != nil {
			return nil, err
		}
	}

	lang := interpretation.Language(req.Language)
	details.Interpretation = interpretation.Render(lang, in)
	resp.Summary = interpretation.Summary(lang, in)
	return resp, nil
}

func (s *AnalysisService) fillLinear(details *models.AnalysisDetails, in *interpretation.Input, panel *Panel, xCols [][]float64, independents []string, y []float64, display func(string) string) error {
	model, err := regression.FitLinear(xCols, y)
	if err != nil {
		return err
	}

	terms := append([]string{interceptTerm}, independents...)
	details.Terms = terms
	details.RSquared = model.RSquared
	details.AdjRSquared = finite(model.AdjRSquared)
	details.Coefficients = make(map[string]float64, len(terms))
	for i, term := range terms {
		details.Coefficients[term] = model.Params[i]
	}
	details.Data.FittedValues = model.Fitted
	details.Data.Residuals = model.Residuals
	in.RSquared = model.RSquared

	inf := model.Inference
	if inf != nil {
		details.StdErrors = make(map[string]*float64, len(terms))
		details.TValues = make(map[string]*float64, len(terms))
		details.PValues = make(map[string]*float64, len(terms))
		details.ConfidenceIntervals = make(map[string][2]float64, len(terms))
		for i, term := range terms {
			details.StdErrors[term] = finite(inf.StdErrors[i])
			details.TValues[term] = finite(inf.TValues[i])
			details.PValues[term] = finite(inf.PValues[i])
			ci := inf.ConfInt[i]
			if isFinite(ci[0]) && isFinite(ci[1]) {
				details.ConfidenceIntervals[term] = ci
			}
		}
		details.FStatistic = finite(inf.FStatistic)
		details.FPValue = finite(inf.FPValue)
		in.FPValue = details.FPValue
	}

	for i, v := range independents {
		c := interpretation.Coefficient{Name: display(v), Value: model.Params[i+1]}
		if inf != nil {
			c.PValue = finite(inf.PValues[i+1])
		}
		in.Coefficients = append(in.Coefficients, c)
	}

	variables := panel.Variables
	details.Correlations = regression.CorrelationMatrix(variables, panel.Columns(variables))

	if len(independents) == 1 {
		if r, p, ok := regression.Pearson(xCols[0], y); ok {
			details.Pearson = &models.PearsonResult{Coefficient: r, PValue: finite(p)}
		}
	}

	diag := &models.DiagnosticsResult{}
	if dw, ok := regression.DurbinWatson(model.Residuals); ok {
		diag.DurbinWatson = finite(dw)
	}
	if lm, p, ok := regression.BreuschPagan(model.Residuals, xCols); ok {
		diag.BreuschPaganStat = finite(lm)
		diag.BreuschPaganPValue = finite(p)
	}
	if diag.DurbinWatson != nil || diag.BreuschPaganStat != nil {
		details.Diagnostics = diag
	}
	return nil
}

func (s *AnalysisService) fillPolynomial(details *models.AnalysisDetails, in *interpretation.Input, xCols [][]float64, independents []string, y []float64) error {
	model, err := regression.FitPolynomial(xCols, independents, y)
	if err != nil {
		return err
	}

	intercept := model.Intercept
	details.RSquared = model.RSquared
	details.Intercept = &intercept
	details.Terms = model.FeatureNames
	details.Coefficients = make(map[string]float64, len(model.FeatureNames))
	for i, name := range model.FeatureNames {
		details.Coefficients[name] = model.Coefficients[i]
		in.Terms = append(in.Terms, interpretation.Coefficient{Name: name, Value: model.Coefficients[i]})
	}
	details.Data.FittedValues = model.Fitted
	details.Correlations = map[string]map[string]float64{}

	in.RSquared = model.RSquared
	in.Intercept = model.Intercept
	return nil
}

// categoryNames maps each variable to its display label. The store wins;
// the embedded taxonomy and finally the raw name are fallbacks.
func (s *AnalysisService) categoryNames(ctx context.Context, variables []string) map[string]string {
	names := make(map[string]string, len(variables))
	for _, v := range variables {
		names[v] = v
		if c, ok := s.registry.ByName(v); ok {
			names[v] = c.Label()
		}
	}

	if s.categories == nil {
		return names
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		s.logger.Warn(ctx, "[ANALYSIS_CATEGORIES] Falling back to built-in category names", logging.Fields{
			"error": err.Error(),
		})
		return names
	}
	for _, c := range categories {
		if _, wanted := names[c.Name]; wanted {
			names[c.Name] = c.Label()
		}
	}
	return names
}

func regionSummaries(panel *Panel, dependent string) []interpretation.RegionSummary {
	y := panel.Column(dependent)
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, row := range panel.Rows {
		sums[row.Region] += y[i]
		counts[row.Region]++
	}

	var out []interpretation.RegionSummary
	for _, region := range panel.Contributing() {
		out = append(out, interpretation.RegionSummary{
			Region:        region,
			Observations:  counts[region],
			DependentMean: sums[region] / float64(counts[region]),
		})
	}
	return out
}

// lookupCache returns whether dest was filled from the cache and the key a
// fresh response must be saved under. The key is pinned to the generation
// seen here.
func (s *AnalysisService) lookupCache(ctx context.Context, req models.AnalysisRequest, dest *models.AnalysisResponse) (bool, string) {
	start := time.Now()
	hit, key, err := s.cache.Lookup(ctx, req, dest)
	s.metrics.ProcessingTimeMS.WithLabelValues("cache_lookup").Observe(float64(time.Since(start).Milliseconds()))
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup("error")
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache lookup failed, computing", logging.Fields{"error": err.Error()})
		return false, key
	case hit:
		s.metrics.RecordCacheLookup("hit")
		return true, key
	default:
		s.metrics.RecordCacheLookup("miss")
		return false, key
	}
}

func (s *AnalysisService) saveCache(ctx context.Context, key string, resp *models.AnalysisResponse) {
	if key == "" {
		return
	}
	if err := s.cache.Save(ctx, key, resp); err != nil {
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache store failed", logging.Fields{"error": err.Error()})
	}
}

func outcomeOf(err error) string {
	var (
		verr *models.ValidationError
		nf   *models.NotFoundError
		cerr *models.ComputationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &cerr):
		return "computation_error"
	default:
		return "error"
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite returns a pointer to v, or nil when v is NaN or infinite.
func finite(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}
