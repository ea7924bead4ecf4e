package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskminder/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	// DefaultBackupDir is the backup directory created next to the task store.
	DefaultBackupDir = "backups"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Storage    StorageConfig    `yaml:"storage"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Backup     BackupConfig     `yaml:"backup"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type StorageConfig struct {
	Backend         string        `yaml:"backend"`
	Dir             string        `yaml:"dir"`
	FileName        string        `yaml:"file_name"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxReadAttempts int           `yaml:"max_read_attempts"`
	BaseBackoff     time.Duration `yaml:"base_backoff"`
	StaleTempAge    time.Duration `yaml:"stale_temp_age"`
}

type SchedulerConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	NotifyRPS     float64       `yaml:"notify_rps"`
	NotifyBurst   int           `yaml:"notify_burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads .env (if present) and the YAML file at configPath. An empty
// configPath yields the defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		// Expand environment variables before parsing
		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, err
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.MaxReadAttempts < 1 {
		return errors.New("storage.max_read_attempts must be at least 1")
	}
	if c.Storage.BaseBackoff < 0 || c.Storage.StaleTempAge < 0 {
		return errors.New("storage durations must not be negative")
	}
	if strings.ContainsAny(c.Storage.FileName, `/\`) {
		return fmt.Errorf("storage.file_name %q must be a bare file name", c.Storage.FileName)
	}

	if c.Scheduler.CheckInterval <= 0 {
		return errors.New("scheduler.check_interval must be positive")
	}

	if c.Backup.Enabled && c.Backup.Schedule != "" {
		if _, err := time.ParseDuration(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup.schedule: %w", err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "taskminder"
	}
	if c.App.Environment == "" {
		c.App.Environment = "local"
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Dir == "" {
		c.Storage.Dir = os.Getenv(models.ConfigDirEnv)
	}
	if c.Storage.FileName == "" {
		c.Storage.FileName = models.TasksFileName
	}
	if c.Storage.MaxReadAttempts == 0 {
		c.Storage.MaxReadAttempts = models.DefaultMaxReadAttempts
	}
	if c.Storage.BaseBackoff == 0 {
		c.Storage.BaseBackoff = models.DefaultBaseBackoff
	}

	// Scheduler defaults
	if c.Scheduler.CheckInterval == 0 {
		c.Scheduler.CheckInterval = models.DefaultCheckInterval
	}
	if c.Scheduler.NotifyRPS == 0 {
		c.Scheduler.NotifyRPS = models.DefaultNotifyRPS
	}
	if c.Scheduler.NotifyBurst == 0 {
		c.Scheduler.NotifyBurst = models.DefaultNotifyBurst
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Enabled && c.Backup.Schedule == "" {
		c.Backup.Schedule = "24h"
	}
	// Без storage.dir каталог бэкапов выбирает BackupService рядом с хранилищем
	if c.Backup.Enabled && c.Backup.StoragePath == "" && c.Storage.Dir != "" {
		c.Backup.StoragePath = filepath.Join(c.Storage.Dir, DefaultBackupDir)
	}
}
