package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"regional-stats/internal/config"
	"regional-stats/internal/models"
	"regional-stats/internal/sources/bps"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// Fetcher downloads one statistical-agency table
type Fetcher interface {
	Fetch(ctx context.Context, q bps.Query) ([]models.RawIndicatorRecord, error)
}

// BatchWriter persists converted observations
type BatchWriter interface {
	CreateObservations(ctx context.Context, observations []*models.Observation, policy string) (models.BatchResult, error)
}

// IngestionService runs API ingestion jobs
type IngestionService struct {
	fetcher     Fetcher
	writer      BatchWriter
	policy      string
	concurrency int
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// JobResult reports one job
type JobResult struct {
	Name          string `json:"name"`
	CategoryID    int64  `json:"category_id"`
	Records       int    `json:"records"`
	FailedRecords int    `json:"failed_records"`
	models.BatchResult
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Jobs         []JobResult `json:"jobs"`
	TotalRecords int         `json:"total_records"`
	FailedJobs   int         `json:"failed_jobs"`
	models.BatchResult
	DurationMS int64 `json:"duration_ms"`
}

// NewIngestionService creates a new ingestion service. Jobs run at most
// concurrency at a time.
func NewIngestionService(fetcher Fetcher, writer BatchWriter, policy string, concurrency int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &IngestionService{
		fetcher:     fetcher,
		writer:      writer,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// Run executes jobs and aggregates their results. A failing job is
// recorded in its JobResult and does not stop the others; only context
// cancellation fails the run as a whole.
func (s *IngestionService) Run(ctx context.Context, jobs []config.JobConfig) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"jobs":        len(jobs),
		"concurrency": s.concurrency,
		"policy":      s.policy,
		"stage":       "INITIALIZATION",
	})

	results := make([]JobResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion cancelled: %w", err)
	}

	result := &IngestionResult{Jobs: results}
	for _, jr := range results {
		result.TotalRecords += jr.Records
		result.Inserted += jr.Inserted
		result.Updated += jr.Updated
		result.Unchanged += jr.Unchanged
		result.Skipped += jr.Skipped
		if jr.Error != "" {
			result.FailedJobs++
		}
	}

	duration := time.Since(startTime)
	result.DurationMS = duration.Milliseconds()
	s.metrics.IngestionDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_records":    result.TotalRecords,
		"inserted":         result.Inserted,
		"updated":          result.Updated,
		"unchanged":        result.Unchanged,
		"skipped":          result.Skipped,
		"failed_jobs":      result.FailedJobs,
		"duration_seconds": duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) runJob(ctx context.Context, job config.JobConfig) JobResult {
	start := time.Now()
	jr := JobResult{Name: job.Name, CategoryID: job.CategoryID}

	fail := func(kind string, err error) JobResult {
		jr.Error = err.Error()
		jr.DurationMS = time.Since(start).Milliseconds()
		s.metrics.RecordIngestionError(kind)
		s.logger.Error(ctx, "[INGEST_JOB_ERROR] Ingestion job failed", logging.Fields{
			"job":   job.Name,
			"stage": kind,
		}, err)
		return jr
	}

	records, err := s.fetcher.Fetch(ctx, bps.Query{
		Domain: job.Domain,
		Var:    job.Var,
		Turvar: job.Turvar,
		Years:  job.Years,
		Region: job.Region,
	})
	if err != nil {
		return fail("fetch_error", err)
	}
	jr.Records = len(records)

	batch := make([]*models.Observation, 0, len(records))
	for i := range records {
		obs, err := records[i].ToObservation(job.CategoryID)
		if err != nil {
			jr.FailedRecords++
			s.metrics.RecordIngestionError("conversion_error")
			continue
		}
		batch = append(batch, obs)
	}

	written, err := s.writer.CreateObservations(ctx, batch, s.policy)
	if err != nil {
		return fail("write_error", err)
	}
	jr.BatchResult = written

	s.metrics.IngestionRecordsTotal.WithLabelValues(string(models.OutcomeInserted)).Add(float64(written.Inserted))
	s.metrics.IngestionRecordsTotal.WithLabelValues(string(models.OutcomeUpdated)).Add(float64(written.Updated))
	s.metrics.IngestionRecordsTotal.WithLabelValues(string(models.OutcomeUnchanged)).Add(float64(written.Unchanged))
	s.metrics.IngestionRecordsTotal.WithLabelValues(string(models.OutcomeSkipped)).Add(float64(written.Skipped))

	s.logger.Info(ctx, "[INGEST_JOB_SUCCESS] Job ingested successfully", logging.Fields{
		"job":            job.Name,
		"records":        jr.Records,
		"failed_records": jr.FailedRecords,
		"inserted":       written.Inserted,
		"updated":        written.Updated,
		"stage":          "JOB_COMPLETE",
	})
	jr.DurationMS = time.Since(start).Milliseconds()
	return jr
}
