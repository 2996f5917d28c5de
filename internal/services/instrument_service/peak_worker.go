package instrument_service

import (
	"context"
	"time"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

// Параметр таблицы команд, отдающий "частота;амплитуда" активного пика
const peakParameter = "marker_peak"

// PeakWorker - независимый фоновый публикатор активного пика маркера.
// Живет вне сканирования и не трогает менеджеров: прибор он делит с ними
// только через транслятор и мьютекс транспорта.
type PeakWorker struct {
	translator interfaces.Translator
	bus        interfaces.EventBus
	interval   time.Duration
	logger     *logging.Logger
}

func NewPeakWorker(cfg *config.AppConfig, translator interfaces.Translator, eventBus interfaces.EventBus, logger *logging.Logger) interfaces.PeakWorker {
	return &PeakWorker{
		translator: translator,
		bus:        eventBus,
		interval:   cfg.Peak.Interval,
		logger:     logger.WithPrefix("PEAK"),
	}
}

// Run опрашивает прибор до отмены контекста
func (w *PeakWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Peak worker started", "interval", w.interval)
	defer w.logger.Info("Peak worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

func (w *PeakWorker) pollOnce() {
	value, err := w.translator.Translate(models.AbstractCommand{
		Action:    models.ActionNab,
		Parameter: peakParameter,
	})
	if err != nil {
		// Ошибка локальна для этой итерации: следующий тик попробует снова
		w.logger.Debug("Peak poll failed", "error", err)
		return
	}
	if len(value.Floats) < 2 {
		w.logger.Warn("Peak response too short", "raw", value.Raw)
		return
	}

	w.bus.Publish(bus.TopicPeak, "", models.PeakEvent{
		FrequencyHz:  value.Floats[0],
		AmplitudeDBm: value.Floats[1],
	})
}
