package services

import (
	"context"
	"errors"

	"regional-stats/internal/models"
	"regional-stats/internal/regression"
	"regional-stats/pkg/logging"
)

// Predict fits the dependent variable on the independent one for a single
// region and evaluates the line at req.IndependentValue. Values outside the
// observed range are extrapolated without warning.
func (s *AnalysisService) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	if err := req.Validate(); err != nil {
		s.metrics.PredictionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	region, err := models.ParseRegion(req.City)
	if err != nil {
		return nil, err
	}

	variables := []string{req.IndependentVariable, req.DependentVariable}
	panel, err := s.panels.Build(ctx, variables, []models.Region{region}, nil, 1)
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			s.metrics.PredictionsTotal.WithLabelValues("not_found").Inc()
			return nil, &models.NotFoundError{Resource: "series", ID: req.City, Message: "insufficient historical data"}
		}
		s.metrics.PredictionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	x := panel.Column(req.IndependentVariable)
	y := panel.Column(req.DependentVariable)
	model, err := regression.FitLinear([][]float64{x}, y)
	if err != nil {
		s.metrics.PredictionsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	value := *req.IndependentValue
	predicted := model.Predict(value)
	if !isFinite(predicted) {
		s.metrics.PredictionsTotal.WithLabelValues("computation_error").Inc()
		return nil, &models.ComputationError{Op: "predict", Message: "prediction is not a finite number"}
	}
	s.metrics.PredictionsTotal.WithLabelValues("success").Inc()

	s.logger.Info(ctx, "[PREDICTION_COMPLETE] Prediction computed", logging.Fields{
		"city":         req.City,
		"observations": len(panel.Rows),
		"r_squared":    model.RSquared,
	})

	return &models.PredictionResponse{
		City: req.City,
		Predictions: models.Predictions{
			IndependentVariable: models.PredictionInput{Name: req.IndependentVariable, Value: value},
			DependentVariable:   models.PredictionOutput{Name: req.DependentVariable, PredictedValue: predicted},
			ConfidenceMetrics:   models.ConfidenceMetrics{RSquared: model.RSquared},
		},
	}, nil
}
