package services

import (
	"context"

	"regional-stats/internal/cache"
	"regional-stats/internal/models"
	"regional-stats/internal/repository"
	"regional-stats/internal/taxonomy"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// ObservationService handles category and observation CRUD. Every write
// that changes stored data invalidates the analysis cache.
type ObservationService struct {
	repo    repository.ObservationRepository
	cache   cache.Store
	policy  models.DuplicatePolicy
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewObservationService creates a new observation service. policy is used
// when a caller does not name one.
func NewObservationService(repo repository.ObservationRepository, store cache.Store, policy models.DuplicatePolicy, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ObservationService {
	if store == nil {
		store = cache.NoopStore{}
	}
	if policy == "" {
		policy = models.DuplicateReject
	}
	return &ObservationService{
		repo:    repo,
		cache:   store,
		policy:  policy,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (s *ObservationService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache invalidation failed", logging.Fields{"error": err.Error()})
	}
}

func (s *ObservationService) resolvePolicy(policy string) (models.DuplicatePolicy, error) {
	if policy == "" {
		return s.policy, nil
	}
	return models.ParseDuplicatePolicy(policy)
}

// ListCategories returns every stored category
func (s *ObservationService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *ObservationService) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ObservationService) RenameCategory(ctx context.Context, id int64, name string, displayName *string) (*models.Category, error) {
	c, err := s.repo.RenameCategory(ctx, id, name, displayName)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// SeedCategories writes the embedded taxonomy into the store
func (s *ObservationService) SeedCategories(ctx context.Context) (int, error) {
	n, err := s.repo.SeedCategories(ctx, taxonomy.Default().All())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

// GetObservations retrieves observations with filtering
func (s *ObservationService) GetObservations(ctx context.Context, filter repository.ObservationFilter) ([]*models.Observation, int, error) {
	return s.repo.GetObservations(ctx, filter)
}

func (s *ObservationService) GetObservation(ctx context.Context, id int64) (*models.Observation, error) {
	return s.repo.GetObservation(ctx, id)
}

// CreateObservation stores one observation. An empty policy selects the
// service default.
func (s *ObservationService) CreateObservation(ctx context.Context, obs *models.Observation, policy string) (models.UpsertOutcome, error) {
	p, err := s.resolvePolicy(policy)
	if err != nil {
		return "", err
	}
	outcome, err := s.repo.CreateObservation(ctx, obs, p)
	if err != nil {
		return "", err
	}
	if outcome == models.OutcomeInserted || outcome == models.OutcomeUpdated {
		s.invalidate(ctx)
	}
	return outcome, nil
}

// CreateObservations stores a batch in one transaction.
func (s *ObservationService) CreateObservations(ctx context.Context, observations []*models.Observation, policy string) (models.BatchResult, error) {
	p, err := s.resolvePolicy(policy)
	if err != nil {
		return models.BatchResult{}, err
	}
	result, err := s.repo.CreateObservationsBatch(ctx, observations, p)
	if err != nil {
		return models.BatchResult{}, err
	}
	if result.Inserted+result.Updated > 0 {
		s.invalidate(ctx)
	}
	return result, nil
}

func (s *ObservationService) UpdateObservation(ctx context.Context, obs *models.Observation) error {
	if err := s.repo.UpdateObservation(ctx, obs); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ObservationService) DeleteObservation(ctx context.Context, id int64) error {
	if err := s.repo.DeleteObservation(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// HealthCheck reports whether the store is reachable
func (s *ObservationService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
