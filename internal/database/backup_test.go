package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskminder/internal/config"
	"taskminder/internal/models"
	"taskminder/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_SQLite(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "tasks.db")
	storagePath := filepath.Join(tempDir, "backups")
	ctx := context.Background()

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Save(ctx, []models.Task{newTask("A", models.IntervalDaily, true)}))

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(config.BackendSQLite, dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		backupPath, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.FileExists(t, backupPath)

		restored, err := NewDB(backupPath, &logger)
		require.NoError(t, err)
		defer restored.Close()

		tasks, err := restored.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, taskNames(tasks))
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "backup_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

		// Set mod time to 2 days ago
		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})
}

func TestBackupService_File(t *testing.T) {
	tempDir := t.TempDir()
	storagePath := filepath.Join(tempDir, "backups")
	ctx := context.Background()

	store := storage.NewFileStore(storage.NewResolver(storage.DefaultIdentity(), tempDir, ""), storage.DefaultOptions(), nil)
	sourcePath, err := store.Path()
	require.NoError(t, err)

	logger := zerolog.Nop()
	s := NewBackupService(config.BackendFile, sourcePath, config.BackupConfig{Enabled: true, StoragePath: storagePath}, &logger)

	t.Run("NothingToBackUp", func(t *testing.T) {
		backupPath, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.Empty(t, backupPath)
		assert.NoDirExists(t, storagePath)
	})

	t.Run("CopiesDocument", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, []models.Task{newTask("A", models.IntervalWeekly, false)}))

		backupPath, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.Equal(t, ".json", filepath.Ext(backupPath))

		want, err := os.ReadFile(sourcePath)
		require.NoError(t, err)
		got, err := os.ReadFile(backupPath)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("RetentionDisabled", func(t *testing.T) {
		assert.Equal(t, 0, s.CleanupOldBackups())
	})
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(config.BackendFile, "any", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Stop immediately
	s.Start(ctx)
	// Should just return
}

func TestBackupService_StartStopsOnCancel(t *testing.T) {
	tempDir := t.TempDir()
	logger := zerolog.Nop()
	s := NewBackupService(config.BackendFile, filepath.Join(tempDir, "tasks.json"),
		config.BackupConfig{Enabled: true, Schedule: "1h", StoragePath: tempDir}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backup service did not stop")
	}
}

func TestBackupService_DefaultStoragePath(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store := storage.NewFileStore(storage.NewResolver(storage.DefaultIdentity(), tempDir, ""), storage.DefaultOptions(), nil)
	require.NoError(t, store.Save(ctx, []models.Task{newTask("A", models.IntervalDaily, true)}))
	sourcePath, err := store.Path()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Backup.Enabled = true
	require.NoError(t, cfg.Validate())

	logger := zerolog.Nop()
	s := NewBackupService(config.BackendFile, sourcePath, cfg.Backup, &logger)

	backupPath, err := s.PerformBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, config.DefaultBackupDir), filepath.Dir(backupPath))
	assert.FileExists(t, backupPath)
}

func TestBackupService_StartPrunesAfterFirstBackup(t *testing.T) {
	tempDir := t.TempDir()
	storagePath := filepath.Join(tempDir, "backups")
	require.NoError(t, os.MkdirAll(storagePath, 0o755))

	oldFile := filepath.Join(storagePath, "backup_old.json")
	require.NoError(t, os.WriteFile(oldFile, []byte("[]"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	logger := zerolog.Nop()
	s := NewBackupService(config.BackendFile, filepath.Join(tempDir, "tasks.json"),
		config.BackupConfig{Enabled: true, Schedule: "1h", RetentionDays: 1, StoragePath: storagePath}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(oldFile)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
