package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskminder/internal/config"
	"taskminder/internal/storage"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const backupPrefix = "backup_"

// BackupService snapshots the task store on a schedule and prunes old
// snapshots. SQLite stores are copied with VACUUM INTO, JSON files with an
// atomic copy. An empty storage path means a backups directory next to the
// source.
type BackupService struct {
	backend    string
	sourcePath string
	config     config.BackupConfig
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewBackupService(backend, sourcePath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = filepath.Join(filepath.Dir(sourcePath), config.DefaultBackupDir)
	}
	return &BackupService{
		backend:    backend,
		sourcePath: sourcePath,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Str("schedule", s.config.Schedule).Str("backend", s.backend).Msg("Backup service started")

	interval := 24 * time.Hour
	if s.config.Schedule != "" {
		if d, err := time.ParseDuration(s.config.Schedule); err == nil && d > 0 {
			interval = d
		} else {
			s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("Failed to parse backup schedule, using default 24h")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first backup immediately
	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}
	s.CleanupOldBackups()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot and returns its path. A store that has
// never been written yields no snapshot and an empty path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if _, err := os.Stat(s.sourcePath); errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("source", s.sourcePath).Msg("Nothing to back up yet")
		return "", nil
	}
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := s.now().Format("20060102_150405.000")
	ext := filepath.Ext(s.sourcePath)
	if ext == "" {
		ext = ".bak"
	}
	backupPath := filepath.Join(s.config.StoragePath, backupPrefix+timestamp+ext)

	if s.backend == config.BackendSQLite {
		err := s.vacuumInto(ctx, backupPath)
		if err == nil {
			s.logger.Info().Str("path", backupPath).Msg("Backup completed successfully")
			return backupPath, nil
		}
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
	}

	if err := s.copyFile(backupPath); err != nil {
		return "", err
	}
	s.logger.Info().Str("path", backupPath).Msg("Backup completed successfully")
	return backupPath, nil
}

func (s *BackupService) vacuumInto(ctx context.Context, backupPath string) error {
	db, err := sql.Open("sqlite3", s.sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	// Use VACUUM INTO for a safe online backup
	_, err = db.ExecContext(ctx, "VACUUM INTO ?", backupPath)
	return err
}

func (s *BackupService) copyFile(backupPath string) error {
	data, err := os.ReadFile(s.sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read backup source: %w", err)
	}
	if err := storage.WriteAtomic(backupPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// CleanupOldBackups removes snapshots older than the retention window and
// returns how many were deleted. Other files in the directory are left alone.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)

	removed := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}
