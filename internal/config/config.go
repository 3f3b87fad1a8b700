package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"regional-stats/internal/interpretation"
	"regional-stats/internal/models"
	"regional-stats/internal/taxonomy"
	"regional-stats/pkg/database"
)

// Config is the full application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Cache     CacheConfig     `yaml:"cache"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AnalysisConfig holds defaults for the analysis and store write paths
type AnalysisConfig struct {
	Language        string `yaml:"language"`
	DuplicatePolicy string `yaml:"duplicate_policy"`
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// IngestionConfig configures the statistical-agency API client and jobs
type IngestionConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	Schedule          time.Duration `yaml:"schedule"`
	Concurrency       int           `yaml:"concurrency"`
	DuplicatePolicy   string        `yaml:"duplicate_policy"`
	Jobs              []JobConfig   `yaml:"jobs"`
}

// JobConfig names one API table and the category its values are filed under
type JobConfig struct {
	Name       string `yaml:"name" json:"name"`
	Domain     string `yaml:"domain" json:"domain"`
	Var        string `yaml:"var" json:"var"`
	Turvar     string `yaml:"turvar,omitempty" json:"turvar,omitempty"`
	Years      string `yaml:"years" json:"years"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`
	CategoryID int64  `yaml:"category_id" json:"category_id"`
}

// Default returns the configuration used when no file or variable overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "regional_stats",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Analysis: AnalysisConfig{
			Language:        string(interpretation.English),
			DuplicatePolicy: string(models.DuplicateReject),
		},
		Cache: CacheConfig{
			Addr:      "localhost:6379",
			TTL:       10 * time.Minute,
			KeyPrefix: "analysis:",
		},
		Ingestion: IngestionConfig{
			BaseURL:           "https://webapi.bps.go.id/v1/api",
			RequestsPerSecond: 2,
			Burst:             1,
			Timeout:           30 * time.Second,
			Schedule:          24 * time.Hour,
			Concurrency:       2,
			DuplicatePolicy:   string(models.DuplicateUpdate),
			Jobs: []JobConfig{
				{Name: "gini-ratio", Domain: "3400", Var: "333", Years: "2018:2023", CategoryID: 10},
				{Name: "tpak", Domain: "3471", Var: "152", Years: "2018:2023", CategoryID: 7},
				{Name: "angkatan-bekerja", Domain: "3400", Var: "368", Turvar: "343", Years: "2018:2023", CategoryID: 8},
			},
		},
	}
}

// LoadConfig reads $CONFIG_PATH (default config/config.yaml) over the
// defaults and then applies environment overrides. A missing file is not
// an error.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = "config/config.yaml"
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_HOST", &c.Database.Host)
	if err := num("DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Database)
	str("DB_SSLMODE", &c.Database.SSLMode)
	str("SERVER_HOST", &c.Server.Host)
	if err := num("SERVER_PORT", &c.Server.Port); err != nil {
		return err
	}
	str("LOG_LEVEL", &c.Logging.Level)
	str("REDIS_ADDR", &c.Cache.Addr)
	str("REDIS_PASSWORD", &c.Cache.Password)
	if v, ok := lookup("CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CACHE_ENABLED: %q is not a boolean", v)
		}
		c.Cache.Enabled = enabled
	}
	str("BPS_API_KEY", &c.Ingestion.APIKey)
	str("BPS_BASE_URL", &c.Ingestion.BaseURL)
	str("ANALYSIS_LANGUAGE", &c.Analysis.Language)
	return nil
}

// Validate checks the configuration for values the binaries cannot run with
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "mysql":
	default:
		add("database.driver must be postgres or mysql, got %q", c.Database.Driver)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		add("database.port must be between 1 and 65535")
	}
	if c.Database.Database == "" {
		add("database.database is required")
	}
	if c.Database.MaxOpenConns <= 0 || c.Database.MaxIdleConns < 0 {
		add("database pool sizes must be positive")
	}
	if !interpretation.Supported(interpretation.Language(c.Analysis.Language)) {
		add("analysis.language must be en or id, got %q", c.Analysis.Language)
	}
	if _, err := models.ParseDuplicatePolicy(c.Analysis.DuplicatePolicy); err != nil {
		add("analysis.duplicate_policy: %v", err)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		add("cache.addr is required when the cache is enabled")
	}
	if c.Ingestion.RequestsPerSecond <= 0 {
		add("ingestion.requests_per_second must be positive")
	}
	if c.Ingestion.Concurrency <= 0 {
		add("ingestion.concurrency must be positive")
	}
	if _, err := models.ParseDuplicatePolicy(c.Ingestion.DuplicatePolicy); err != nil {
		add("ingestion.duplicate_policy: %v", err)
	}

	reg := taxonomy.Default()
	for _, job := range c.Ingestion.Jobs {
		if job.Domain == "" || job.Var == "" || job.Years == "" {
			add("ingestion job %q: domain, var and years are required", job.Name)
		}
		if _, ok := reg.ByID(job.CategoryID); !ok {
			add("ingestion job %q: unknown category_id %d", job.Name, job.CategoryID)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Connection converts the database section into connection settings
func (c DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          strings.ToLower(c.Driver),
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}
