package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"regional-stats/internal/cache"
	"regional-stats/internal/config"
	"regional-stats/internal/models"
	"regional-stats/internal/repository"
	"regional-stats/internal/services"
	"regional-stats/internal/sources/bps"
	"regional-stats/pkg/database"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

const version = "1.0.0"

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg          *config.Config
	logger       *logging.StructuredLogger
	observations *services.ObservationService
	ingestion    *services.IngestionService
	close        func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewStructuredLogger("regional-stats-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("regional_stats_ingester")

	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers := []func(){func() { db.Close() }}

	var store cache.Store = cache.NoopStore{}
	if cfg.Cache.Enabled {
		client, err := cache.Dial(ctx, cache.Options{Addr: cfg.Cache.Addr, Password: cfg.Cache.Password, DB: cfg.Cache.DB})
		if err != nil {
			logger.Warn(ctx, "[INGESTER_CACHE] Redis unavailable, analysis cache will not be invalidated", logging.Fields{
				"addr":  cfg.Cache.Addr,
				"error": err.Error(),
			})
		} else {
			closers = append(closers, func() { client.Close() })
			store = cache.NewRedisStore(client, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
		}
	}

	repo := repository.NewObservationRepository(db, logger, metricsCollector)
	policy, _ := models.ParseDuplicatePolicy(cfg.Ingestion.DuplicatePolicy)
	observations := services.NewObservationService(repo, store, policy, logger, metricsCollector)

	client := bps.NewClient(bps.Config{
		BaseURL:           cfg.Ingestion.BaseURL,
		APIKey:            cfg.Ingestion.APIKey,
		RequestsPerSecond: cfg.Ingestion.RequestsPerSecond,
		Burst:             cfg.Ingestion.Burst,
		Timeout:           cfg.Ingestion.Timeout,
	}, nil, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		observations: observations,
		ingestion:    services.NewIngestionService(client, observations, cfg.Ingestion.DuplicatePolicy, cfg.Ingestion.Concurrency, logger, metricsCollector),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// selectJobs keeps the configured jobs named in only, or all of them.
func selectJobs(jobs []config.JobConfig, only []string) ([]config.JobConfig, error) {
	if len(only) == 0 {
		return jobs, nil
	}
	byName := make(map[string]config.JobConfig, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	selected := make([]config.JobConfig, 0, len(only))
	for _, name := range only {
		j, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown job %q", name)
		}
		selected = append(selected, j)
	}
	return selected, nil
}

func printResult(result *services.IngestionResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	for _, j := range result.Jobs {
		status := "ok"
		if j.Error != "" {
			status = "FAILED: " + j.Error
		}
		fmt.Printf("%-24s records=%-5d inserted=%-5d updated=%-5d unchanged=%-5d skipped=%-5d failed=%-3d %s\n",
			j.Name, j.Records, j.Inserted, j.Updated, j.Unchanged, j.Skipped, j.FailedRecords, status)
	}
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Failed Jobs:        %d\n", result.FailedJobs)
	fmt.Printf("Duration:           %v\n", time.Duration(result.DurationMS)*time.Millisecond)
}

func fetchCmd(ctx context.Context) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the configured ingestion jobs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			jobs, err := selectJobs(a.cfg.Ingestion.Jobs, only)
			if err != nil {
				return err
			}
			result, err := a.ingestion.Run(ctx, jobs)
			if err != nil {
				return err
			}
			printResult(result)
			if result.FailedJobs > 0 {
				return fmt.Errorf("%d of %d jobs failed", result.FailedJobs, len(result.Jobs))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "job", nil, "run only the named jobs")
	return cmd
}

func scheduleCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the ingestion jobs every ingestion.schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			scheduler := gocron.NewScheduler(time.UTC)
			_, err = scheduler.Every(a.cfg.Ingestion.Schedule).Do(func() {
				a.logger.Info(ctx, "[INGESTER_SCHEDULED_RUN] Scheduled ingestion starting", logging.Fields{
					"jobs": len(a.cfg.Ingestion.Jobs),
				})
				if _, err := a.ingestion.Run(ctx, a.cfg.Ingestion.Jobs); err != nil {
					a.logger.Error(ctx, "[INGESTER_SCHEDULED_ERROR] Scheduled ingestion failed", logging.Fields{}, err)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to schedule ingestion: %w", err)
			}

			a.logger.Info(ctx, "[INGESTER_SCHEDULER_START] Scheduler started", logging.Fields{
				"interval": a.cfg.Ingestion.Schedule.String(),
			})
			scheduler.StartAsync()

			<-ctx.Done()
			scheduler.Stop()
			a.logger.Info(context.Background(), "[INGESTER_SCHEDULER_STOP] Scheduler stopped", logging.Fields{})
			return nil
		},
	}
}

func seedCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in category taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.observations.SeedCategories(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d categories\n", n)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "ingester",
		Short:         "Regional statistics ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(fetchCmd(ctx), scheduleCmd(ctx), seedCmd(ctx))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ingester: %v\n", err)
		stop()
		os.Exit(1)
	}
}
