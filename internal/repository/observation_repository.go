package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"regional-stats/internal/models"
	"regional-stats/pkg/database"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// ObservationRepository provides data access for the indicator store
type ObservationRepository interface {
	// Category operations
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	RenameCategory(ctx context.Context, id int64, name string, displayName *string) (*models.Category, error)
	SeedCategories(ctx context.Context, categories []models.Category) (int, error)

	// Observation operations
	CreateObservation(ctx context.Context, obs *models.Observation, policy models.DuplicatePolicy) (models.UpsertOutcome, error)
	CreateObservationsBatch(ctx context.Context, observations []*models.Observation, policy models.DuplicatePolicy) (models.BatchResult, error)
	GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, int, error)
	GetObservation(ctx context.Context, id int64) (*models.Observation, error)
	UpdateObservation(ctx context.Context, obs *models.Observation) error
	DeleteObservation(ctx context.Context, id int64) error

	// Analysis read path
	FindSeries(ctx context.Context, categoryName string, region models.Region, years *models.YearRange) ([]models.SeriesPoint, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ObservationFilter defines filters for querying observations
type ObservationFilter struct {
	CategoryID *int64
	City       *string
	ProvinceID *int64
	RegencyID  *int64
	YearFrom   *int
	YearTo     *int
	Limit      int
	Offset     int
}

type observationRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ObservationRepository {
	return &observationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const observationColumns = `id, category_id, year, amount, city, province_id, regency_id, created_at, updated_at`

// regionClause filters on whichever key the region uses.
func regionClause(prefix string, region models.Region) (string, []interface{}) {
	if region.IsCode() {
		return fmt.Sprintf(" AND %sprovince_id = ? AND %sregency_id = ?", prefix, prefix), []interface{}{region.ProvinceID, region.RegencyID}
	}
	return fmt.Sprintf(" AND %scity = ?", prefix), []interface{}{region.City}
}

// insertReturningID runs an INSERT and reports the new primary key. PostgreSQL
// needs RETURNING; MySQL reports it through LastInsertId.
func (r *observationRepository) insertReturningID(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if tx.DriverName() == database.DriverPostgres {
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateObservation writes one observation under the given duplicate policy
func (r *observationRepository) CreateObservation(ctx context.Context, obs *models.Observation, policy models.DuplicatePolicy) (models.UpsertOutcome, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	outcome, err := r.upsert(ctx, tx, obs, policy, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_OBSERVATION] Observation written", logging.Fields{
		"category_id": obs.CategoryID,
		"region":      obs.Region().Key(),
		"year":        obs.Year,
		"outcome":     string(outcome),
	})
	return outcome, nil
}

// CreateObservationsBatch writes observations in a single transaction. Under
// the reject policy the first duplicate aborts the whole batch.
func (r *observationRepository) CreateObservationsBatch(ctx context.Context, observations []*models.Observation, policy models.DuplicatePolicy) (models.BatchResult, error) {
	var result models.BatchResult
	if len(observations) == 0 {
		return result, nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.metrics.DBQueryDuration.WithLabelValues("batch_upsert_observations").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
			"count":       len(observations),
			"inserted":    result.Inserted,
			"updated":     result.Updated,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, obs := range observations {
		outcome, err := r.upsert(ctx, tx, obs, policy, now)
		if err != nil {
			return models.BatchResult{}, err
		}
		result.Add(outcome)
	}

	if err := tx.Commit(); err != nil {
		r.metrics.RecordDBError("transaction_commit_error")
		return models.BatchResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// upsert applies the duplicate policy against the existing row for the same
// (category, region, year), if any.
func (r *observationRepository) upsert(ctx context.Context, tx *sqlx.Tx, obs *models.Observation, policy models.DuplicatePolicy, now time.Time) (models.UpsertOutcome, error) {
	if err := obs.Validate(); err != nil {
		return "", err
	}

	region := obs.Region()
	where, args := regionClause("", region)
	lookup := `SELECT id, amount FROM observations WHERE category_id = ? AND year = ?` + where + ` ORDER BY id LIMIT 1`

	var existing struct {
		ID     int64   `db:"id"`
		Amount float64 `db:"amount"`
	}
	err := tx.GetContext(ctx, &existing, tx.Rebind(lookup), append([]interface{}{obs.CategoryID, obs.Year}, args...)...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		obs.CreatedAt, obs.UpdatedAt = now, now
		id, err := r.insertReturningID(ctx, tx, `
			INSERT INTO observations (category_id, year, amount, city, province_id, regency_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			obs.CategoryID, obs.Year, float64(obs.Amount), obs.City, obs.ProvinceID, obs.RegencyID, obs.CreatedAt, obs.UpdatedAt,
		)
		if err != nil {
			r.metrics.RecordDBError("insert_error")
			return "", fmt.Errorf("failed to insert observation: %w", err)
		}
		obs.ID = id
		return models.OutcomeInserted, nil
	case err != nil:
		r.metrics.RecordDBError("get_error")
		return "", fmt.Errorf("failed to look up existing observation: %w", err)
	}

	obs.ID = existing.ID
	switch policy {
	case models.DuplicateSkip:
		return models.OutcomeSkipped, nil
	case models.DuplicateUpdate:
		if existing.Amount == float64(obs.Amount) {
			return models.OutcomeUnchanged, nil
		}
		obs.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE observations SET amount = ?, updated_at = ? WHERE id = ?`),
			float64(obs.Amount), obs.UpdatedAt, existing.ID); err != nil {
			r.metrics.RecordDBError("update_error")
			return "", fmt.Errorf("failed to update observation: %w", err)
		}
		return models.OutcomeUpdated, nil
	default:
		return "", &models.ConflictError{
			Resource: "observation",
			Key:      fmt.Sprintf("category %d, region %s, year %d", obs.CategoryID, region.Key(), obs.Year),
		}
	}
}

// GetObservations retrieves observations with filtering and pagination
func (r *observationRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, int, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE 1=1`
	args := []interface{}{}

	if filter.CategoryID != nil {
		query += " AND category_id = ?"
		args = append(args, *filter.CategoryID)
	}
	if filter.City != nil {
		query += " AND city = ?"
		args = append(args, *filter.City)
	}
	if filter.ProvinceID != nil {
		query += " AND province_id = ?"
		args = append(args, *filter.ProvinceID)
	}
	if filter.RegencyID != nil {
		query += " AND regency_id = ?"
		args = append(args, *filter.RegencyID)
	}
	if filter.YearFrom != nil {
		query += " AND year >= ?"
		args = append(args, *filter.YearFrom)
	}
	if filter.YearTo != nil {
		query += " AND year <= ?"
		args = append(args, *filter.YearTo)
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_observations", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	query += " ORDER BY category_id, year DESC, id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var observations []*models.Observation
	if err := r.db.SelectContext(ctx, "get_observations", &observations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get observations: %w", err)
	}

	return observations, totalCount, nil
}

// GetObservation retrieves an observation by id
func (r *observationRepository) GetObservation(ctx context.Context, id int64) (*models.Observation, error) {
	var obs models.Observation
	err := r.db.GetContext(ctx, "get_observation", &obs, `SELECT `+observationColumns+` FROM observations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "observation", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return &obs, nil
}

// UpdateObservation overwrites every mutable field of an existing observation
func (r *observationRepository) UpdateObservation(ctx context.Context, obs *models.Observation) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	obs.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, "update_observation", `
		UPDATE observations
		SET category_id = ?, year = ?, amount = ?, city = ?, province_id = ?, regency_id = ?, updated_at = ?
		WHERE id = ?`,
		obs.CategoryID, obs.Year, float64(obs.Amount), obs.City, obs.ProvinceID, obs.RegencyID, obs.UpdatedAt, obs.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update observation: %w", err)
	}
	return requireAffected(res, "observation", obs.ID)
}

// DeleteObservation removes an observation by id
func (r *observationRepository) DeleteObservation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "delete_observation", `DELETE FROM observations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete observation: %w", err)
	}
	return requireAffected(res, "observation", id)
}

func requireAffected(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

// FindSeries returns (amount, year) for one category and region ordered by
// year. The category may be given by canonical or display name.
func (r *observationRepository) FindSeries(ctx context.Context, categoryName string, region models.Region, years *models.YearRange) ([]models.SeriesPoint, error) {
	where, regionArgs := regionClause("o.", region)
	query := `
		SELECT o.amount, o.year
		FROM observations o
		JOIN categories c ON c.id = o.category_id
		WHERE (c.name = ? OR c.display_name = ?)` + where
	args := append([]interface{}{categoryName, categoryName}, regionArgs...)

	if years != nil && years.From != 0 {
		query += " AND o.year >= ?"
		args = append(args, years.From)
	}
	if years != nil && years.To != 0 {
		query += " AND o.year <= ?"
		args = append(args, years.To)
	}
	query += " ORDER BY o.year, o.id"

	var points []models.SeriesPoint
	if err := r.db.SelectContext(ctx, "find_series", &points, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load series %q for %s: %w", categoryName, region.Key(), err)
	}

	key := region.Key()
	for i := range points {
		points[i].Region = key
	}
	return points, nil
}

// HealthCheck performs a repository health check
func (r *observationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
