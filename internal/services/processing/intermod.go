package processing

import (
	"fmt"
	"sort"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Серьезность продукта по его порядку: третий порядок бьет сильнее всего
func severityForOrder(order int) string {
	switch order {
	case 3:
		return "High"
	case 5:
		return "Medium"
	default:
		return "Low"
	}
}

// Intermod считает интермодуляционные продукты вида k*f1-(k-1)*f2 для всех
// пар входных тонов и заданных нечетных порядков, отфильтрованные по
// сканируемой полосе. Каждому продукту сопоставляется ближайший наблюдаемый
// отсчет амплитуды (при равных расстояниях - нижняя частота).
// Чистая функция своих аргументов, скрытого состояния нет.
func Intermod(tonesHz []float64, orders []int, bandStartHz, bandStopHz float64, traceFreqs, traceAmps []float64) (*models.IntermodResult, error) {
	if len(tonesHz) < 2 {
		return nil, fmt.Errorf("для расчета интермодуляции нужно минимум два тона, передано %d", len(tonesHz))
	}
	if len(traceFreqs) != len(traceAmps) {
		return nil, fmt.Errorf("%w: %d частот против %d амплитуд в трассе", ErrAxisMismatch, len(traceFreqs), len(traceAmps))
	}
	if len(orders) == 0 {
		orders = []int{3, 5}
	}
	for _, order := range orders {
		if order < 3 || order%2 == 0 {
			return nil, fmt.Errorf("порядок интермодуляции должен быть нечетным и >= 3, получен %d", order)
		}
	}

	tones := append([]float64(nil), tonesHz...)
	sort.Float64s(tones)

	result := &models.IntermodResult{Tones: tones, Orders: orders}

	for i := 0; i < len(tones); i++ {
		for j := i + 1; j < len(tones); j++ {
			f1, f2 := tones[i], tones[j]
			for _, order := range orders {
				k := (order + 1) / 2
				products := []struct {
					freq  float64
					label string
				}{
					{float64(k)*f1 - float64(k-1)*f2, fmt.Sprintf("%df1-%df2", k, k-1)},
					{float64(k)*f2 - float64(k-1)*f1, fmt.Sprintf("%df2-%df1", k, k-1)},
				}

				for _, p := range products {
					if p.freq <= 0 {
						continue
					}
					if bandStopHz > 0 && (p.freq < bandStartHz || p.freq > bandStopHz) {
						continue
					}
					result.Products = append(result.Products, models.IntermodProduct{
						FrequencyHz:  p.freq,
						AmplitudeDBm: nearestAmplitude(traceFreqs, traceAmps, p.freq),
						Order:        order,
						Label:        p.label,
						Severity:     severityForOrder(order),
					})
				}
			}
		}
	}

	sort.Slice(result.Products, func(a, b int) bool {
		return result.Products[a].FrequencyHz < result.Products[b].FrequencyHz
	})

	return result, nil
}

// nearestAmplitude - ближайший сосед по частотной оси; при равных
// расстояниях побеждает нижняя частота. Без трассы возвращает 0.
func nearestAmplitude(freqs, amps []float64, f float64) float64 {
	if len(freqs) == 0 {
		return 0
	}

	idx := sort.SearchFloat64s(freqs, f)
	if idx == 0 {
		return amps[0]
	}
	if idx == len(freqs) {
		return amps[len(amps)-1]
	}

	below := f - freqs[idx-1]
	above := freqs[idx] - f
	if below <= above {
		return amps[idx-1]
	}
	return amps[idx]
}
