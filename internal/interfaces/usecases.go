package interfaces

import (
	"github.com/iwtcode/spectrumService/internal/domain/entities"
	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	Connect() (*models.ConnectionInfo, error)
	Disconnect() error
	CheckConnection() *models.ConnectionInfo

	SetParameter(parameter string, values ...string) (models.TypedValue, error)
	GetParameter(parameter string) (models.TypedValue, error)
	DoAction(parameter string) error
	ListParameters() []models.InstrumentState

	StartScan(plan models.ScanPlan) (string, error)
	PauseScan() error
	ResumeScan() error
	StopScan() error
	ScanStatus() models.ScanStatus
	ListRuns() ([]entities.ScanRun, error)

	CalculateIntermod(req models.IntermodRequest) (*models.IntermodResult, error)
}
