package scan_service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/processing"
)

// Параметр чтения трассы в таблице команд
const traceParameter = "trace_data"

// Worker снимает спектр одного сегмента: опрашивает трассу с фиксированным
// периодом, пока не истечет dwell и пик не стабилизируется. Отмена контекста
// кооперативная - воркер замечает ее на границе опроса и отдает уже снятое,
// начатый захват никогда не обрезается на полуслове.
type Worker struct {
	translator interfaces.Translator
	cfg        config.ScanConfig
	logger     *logging.Logger
}

func NewWorker(translator interfaces.Translator, cfg config.ScanConfig, logger *logging.Logger) *Worker {
	return &Worker{
		translator: translator,
		cfg:        cfg,
		logger:     logger.WithPrefix("ACQUISITION"),
	}
}

// Capture выполняет захват сегмента и возвращает его спектр.
// Dwell - минимальное время накопления; после него воркер завершает сегмент,
// как только пик продержится StabilityCount опросов в пределах StabilityDelta,
// но не позже dwell + DwellSlack.
func (w *Worker) Capture(ctx context.Context, segmentIndex int, seg models.Segment) (models.Spectrum, error) {
	dwell := time.Duration(seg.DwellMs) * time.Millisecond
	started := time.Now()
	deadline := started.Add(dwell + w.cfg.DwellSlack)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var polls []models.Spectrum
	var lastPeak float64
	stable := 0

	for {
		sp, err := w.pollTrace(segmentIndex, seg)
		if err != nil {
			return models.Spectrum{}, fmt.Errorf("ошибка чтения трассы сегмента %d: %w", segmentIndex, err)
		}
		polls = append(polls, sp)

		peak := maxAmplitude(sp.Amps)
		if len(polls) > 1 && math.Abs(peak-lastPeak) <= w.cfg.StabilityDelta {
			stable++
		} else {
			stable = 0
		}
		lastPeak = peak

		if time.Since(started) >= dwell {
			if w.cfg.StabilityCount <= 0 || stable >= w.cfg.StabilityCount {
				break
			}
			if time.Now().After(deadline) {
				w.logger.Debug("Dwell slack exhausted, peak still moving", "segment", segmentIndex, "peak", peak)
				break
			}
		}

		canceled := false
		select {
		case <-ctx.Done():
			canceled = true
		case <-ticker.C:
		}
		if canceled {
			w.logger.Info("Capture cut short by stop request", "segment", segmentIndex, "polls", len(polls))
			break
		}
	}

	return w.reduce(segmentIndex, polls), nil
}

// pollTrace выполняет одно чтение трассы и разворачивает его в спектр.
// Частотная ось строится равномерно по границам сегмента: прибор отдает
// только амплитуды.
func (w *Worker) pollTrace(segmentIndex int, seg models.Segment) (models.Spectrum, error) {
	value, err := w.translator.Translate(models.AbstractCommand{
		Action:    models.ActionGet,
		Parameter: traceParameter,
	})
	if err != nil {
		return models.Spectrum{}, err
	}
	if len(value.Floats) == 0 {
		return models.Spectrum{}, fmt.Errorf("прибор вернул пустую трассу")
	}

	return models.Spectrum{
		SegmentIndex: segmentIndex,
		Freqs:        linspace(seg.StartHz, seg.StopHz, len(value.Floats)),
		Amps:         value.Floats,
		CapturedAt:   time.Now(),
	}, nil
}

// reduce сворачивает повторные опросы в итоговый спектр сегмента:
// поканальное среднее, если включено усреднение, иначе последнее чтение
func (w *Worker) reduce(segmentIndex int, polls []models.Spectrum) models.Spectrum {
	last := polls[len(polls)-1]
	if !w.cfg.AverageTraces || len(polls) < 2 {
		return last
	}

	avg, err := processing.AverageSpectra(polls, false)
	if err != nil {
		// Прибор сменил число точек посреди захвата - усреднять нечего
		w.logger.Warn("Polls not averageable, keeping last trace", "segment", segmentIndex, "error", err)
		return last
	}

	return models.Spectrum{
		SegmentIndex: segmentIndex,
		Freqs:        avg.Freqs,
		Amps:         avg.Mean,
		CapturedAt:   last.CapturedAt,
	}
}

func linspace(startHz, stopHz float64, n int) []float64 {
	freqs := make([]float64, n)
	if n == 1 {
		freqs[0] = (startHz + stopHz) / 2
		return freqs
	}
	step := (stopHz - startHz) / float64(n-1)
	for i := range freqs {
		freqs[i] = startHz + step*float64(i)
	}
	return freqs
}

func maxAmplitude(amps []float64) float64 {
	peak := math.Inf(-1)
	for _, a := range amps {
		if a > peak {
			peak = a
		}
	}
	return peak
}
