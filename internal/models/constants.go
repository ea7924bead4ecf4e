package models

import "time"

// Application identity used to locate the platform configuration directory.
const (
	IdentityNamespace    = "com"
	IdentityOrganization = "example"
	IdentityApplication  = "task_scheduler_gui"
)

const (
	// TasksFileName имя файла со списком задач
	TasksFileName = "tasks.json"

	// ConfigDirEnv переопределяет каталог хранения целиком
	ConfigDirEnv = "TASKMINDER_CONFIG_DIR"

	// SQLiteFileName имя файла базы для backend=sqlite
	SQLiteFileName = "tasks.db"
)

const (
	// DefaultMaxReadAttempts попытки чтения текущего состояния перед слиянием
	DefaultMaxReadAttempts = 3

	// DefaultBaseBackoff базовая задержка; после попытки n ждём base * 2^n
	DefaultBaseBackoff = 10 * time.Millisecond

	// DefaultStaleTempAge минимальный возраст временного файла для удаления;
	// 0 означает удалять все оставшиеся временные файлы
	DefaultStaleTempAge time.Duration = 0

	// DefaultCheckInterval период проверки задач
	DefaultCheckInterval = 60 * time.Second

	// DefaultNotifyRPS и DefaultNotifyBurst ограничивают поток напоминаний
	DefaultNotifyRPS   = 2.0
	DefaultNotifyBurst = 5
)
