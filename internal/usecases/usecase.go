package usecases

import (
	"sync"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

type Usecase struct {
	transport  interfaces.Transport
	instrument interfaces.InstrumentService
	scan       interfaces.ScanService
	repo       interfaces.ScanRunRepository
	bus        interfaces.EventBus

	traceMu   sync.RWMutex
	lastTrace *models.StitchedTrace
}

func NewUsecase(
	transport interfaces.Transport,
	instrument interfaces.InstrumentService,
	scan interfaces.ScanService,
	repo interfaces.ScanRunRepository,
	eventBus interfaces.EventBus,
) interfaces.Usecases {
	u := &Usecase{
		transport:  transport,
		instrument: instrument,
		scan:       scan,
		repo:       repo,
		bus:        eventBus,
	}
	u.observeTrace(eventBus)
	return u
}

// observeTrace запоминает склеенную трассу последнего скана: по ней
// расчет интермодуляции привязывает продукты к наблюдаемым амплитудам
func (u *Usecase) observeTrace(eventBus interfaces.EventBus) {
	events, _ := eventBus.Subscribe(bus.TopicStitched, 4)
	go func() {
		for ev := range events {
			trace, ok := ev.Payload.(*models.StitchedTrace)
			if !ok {
				continue
			}
			u.traceMu.Lock()
			u.lastTrace = trace
			u.traceMu.Unlock()
		}
	}()
}

func (u *Usecase) observedTrace() *models.StitchedTrace {
	u.traceMu.RLock()
	defer u.traceMu.RUnlock()
	return u.lastTrace
}
