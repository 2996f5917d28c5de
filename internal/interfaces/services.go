package interfaces

import (
	"context"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Transport - опаковый канал запрос/ответ к физическому прибору.
// Реализация обязана сериализовать доступ: прибор принимает одну команду
// за раз и требует строгого порядка запрос/ответ.
type Transport interface {
	Connect() error
	Close() error
	IsConnected() bool
	Identity() string
	Model() string
	Query(cmd string) (string, error)
	Write(cmd string) error
}

// Translator - транслятор абстрактных команд YAK в wire-команды прибора
type Translator interface {
	Translate(cmd models.AbstractCommand) (models.TypedValue, error)
	HasBinding(action models.Action, parameter string) bool
	Bindings() []models.CommandBinding
}

// InstrumentService - агрегат менеджеров параметров прибора
type InstrumentService interface {
	RequestSet(parameter string, values ...string) (models.TypedValue, error)
	RequestGet(parameter string) (models.TypedValue, error)
	RequestDo(parameter string) error
	States() []models.InstrumentState
	Parameters() []string
}

// ScanService - оркестратор многосегментного сканирования
type ScanService interface {
	Start(plan models.ScanPlan) (string, error)
	Pause() error
	Resume() error
	Stop() error
	Status() models.ScanStatus
}

// PeakWorker - фоновый публикатор активного пика
type PeakWorker interface {
	Run(ctx context.Context)
}
