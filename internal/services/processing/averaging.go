package processing

import (
	"fmt"
	"math"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Допуск сравнения частотных осей: оси считаются одинаковыми, если бины
// совпадают с точностью до долей герца
const axisTolerance = 1e-6

// AverageResult - поканальное среднее и (опционально) max-hold по N спектрам
type AverageResult struct {
	Freqs   []float64
	Mean    []float64
	MaxHold []float64
}

// Average считает поканальное среднее N повторных спектров одной оси.
// Оси должны совпадать по длине и шагу, иначе ErrAxisMismatch.
func Average(spectraAmps [][]float64, freqs [][]float64, withMaxHold bool) (*AverageResult, error) {
	if len(spectraAmps) == 0 || len(freqs) == 0 {
		return nil, ErrNoData
	}
	if len(spectraAmps) != len(freqs) {
		return nil, fmt.Errorf("%w: %d спектров против %d осей", ErrAxisMismatch, len(spectraAmps), len(freqs))
	}

	axis := freqs[0]
	for i := 1; i < len(freqs); i++ {
		if err := compareAxes(axis, freqs[i]); err != nil {
			return nil, err
		}
	}
	for i, amps := range spectraAmps {
		if len(amps) != len(axis) {
			return nil, fmt.Errorf("%w: спектр %d имеет %d точек, ось - %d", ErrAxisMismatch, i, len(amps), len(axis))
		}
	}

	result := &AverageResult{
		Freqs: append([]float64(nil), axis...),
		Mean:  make([]float64, len(axis)),
	}
	if withMaxHold {
		result.MaxHold = make([]float64, len(axis))
		for i := range result.MaxHold {
			result.MaxHold[i] = math.Inf(-1)
		}
	}

	// Сначала сумма, деление один раз на бин: так среднее N одинаковых
	// спектров воспроизводит вход точно, без накопления ошибки округления
	for _, amps := range spectraAmps {
		for i, a := range amps {
			result.Mean[i] += a
			if withMaxHold && a > result.MaxHold[i] {
				result.MaxHold[i] = a
			}
		}
	}
	n := float64(len(spectraAmps))
	for i := range result.Mean {
		result.Mean[i] /= n
	}

	return result, nil
}

// AverageSpectra - удобная обертка над Average для доменных спектров
func AverageSpectra(spectra []models.Spectrum, withMaxHold bool) (*AverageResult, error) {
	amps := make([][]float64, len(spectra))
	freqs := make([][]float64, len(spectra))
	for i, sp := range spectra {
		amps[i] = sp.Amps
		freqs[i] = sp.Freqs
	}
	return Average(amps, freqs, withMaxHold)
}

func compareAxes(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: длины осей %d и %d", ErrAxisMismatch, len(a), len(b))
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > axisTolerance {
			return fmt.Errorf("%w: бин %d: %v против %v", ErrAxisMismatch, i, a[i], b[i])
		}
	}
	return nil
}
