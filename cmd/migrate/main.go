package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"regional-stats/internal/config"
	"regional-stats/pkg/database"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// migrationFiles lists migrations/{driver}/*.{direction}.sql, newest last
// for up and newest first for down.
func migrationFiles(dir, driver, direction string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, driver, "*."+direction+".sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s migrations found in %s", direction, filepath.Join(dir, driver))
	}
	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	return files, nil
}

// statements splits a migration on ';' so drivers without multi-statement
// support can run it.
func statements(content string) []string {
	var out []string
	for _, s := range strings.Split(content, ";") {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func run(direction, dir string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStructuredLogger("regional-stats-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	dbConfig := cfg.Database.Connection()
	db, err := database.Open(dbConfig, logger, metrics.NewCollector("regional_stats_migrate"))
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := migrationFiles(dir, dbConfig.DriverName(), direction)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}

		fmt.Printf("Running migration: %s\n", file)
		for _, stmt := range statements(string(content)) {
			if _, err := db.DB().ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s failed: %w", filepath.Base(file), err)
			}
		}
	}

	fmt.Println("Migration completed successfully")
	return nil
}

func main() {
	var dir string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "migrations", "migrations root directory")

	for _, direction := range []string{"up", "down"} {
		root.AddCommand(&cobra.Command{
			Use:   direction,
			Short: "Run the " + direction + " migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(direction, dir)
			},
		})
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
