package usecases

import (
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/services/bus"
	"github.com/iwtcode/spectrumService/internal/services/processing"
)

// CalculateIntermod считает интермодуляционные продукты для заданных тонов.
// Если в памяти есть склеенная трасса последнего скана, продуктам
// сопоставляются наблюдаемые амплитуды.
func (u *Usecase) CalculateIntermod(req models.IntermodRequest) (*models.IntermodResult, error) {
	var traceFreqs, traceAmps []float64
	if trace := u.observedTrace(); trace != nil {
		traceFreqs, traceAmps = trace.Freqs, trace.Amps
	}

	result, err := processing.Intermod(req.TonesHz, req.Orders, req.BandStartHz, req.BandStopHz, traceFreqs, traceAmps)
	if err != nil {
		return nil, err
	}

	u.bus.Publish(bus.TopicIntermod, "", result)
	return result, nil
}
