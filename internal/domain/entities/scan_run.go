package entities

import "time"

// Статусы жизненного цикла ScanRun
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusStopping  = "stopping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ScanRun - одна попытка выполнения плана сканирования.
// План хранится сериализованным, чтобы прерванный запуск можно было
// отчитать после рестарта сервиса.
type ScanRun struct {
	RunID        string    `gorm:"primaryKey;not null" json:"run_id"`
	PlanName     string    `json:"plan_name"`
	PlanJSON     string    `gorm:"type:text" json:"plan_json"`
	Status       string    `gorm:"not null;index" json:"status"`
	SegmentIndex int       `json:"segment_index"`
	Partial      bool      `json:"partial"`
	OutputDir    string    `json:"output_dir"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal сообщает, завершен ли запуск
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
