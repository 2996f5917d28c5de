package interfaces

import (
	"github.com/iwtcode/spectrumService/internal/domain/entities"
)

// ScanRunRepository определяет контракт для работы с сохраненными запусками в БД
type ScanRunRepository interface {
	Create(run *entities.ScanRun) error
	Update(run *entities.ScanRun) error
	GetByRunID(runID string) (*entities.ScanRun, error)
	GetAll() ([]entities.ScanRun, error)
	GetUnfinished() ([]entities.ScanRun, error)
}
