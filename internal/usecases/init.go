package usecases

import (
	"github.com/iwtcode/spectrumService/internal/interfaces"
)

// UseCases - агрегатор всех use case интерфейсов
type UseCases struct {
	interfaces.Usecases
}

// NewUsecases - конструктор для UseCases
func NewUsecases(
	transport interfaces.Transport,
	instrument interfaces.InstrumentService,
	scan interfaces.ScanService,
	repo interfaces.ScanRunRepository,
	eventBus interfaces.EventBus,
) interfaces.Usecases {
	return NewUsecase(transport, instrument, scan, repo, eventBus)
}
