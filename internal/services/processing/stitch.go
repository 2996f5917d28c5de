package processing

import (
	"fmt"
	"math"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Stitch склеивает упорядоченные спектры сегментов в одну трассу, снимая
// двойной учет точек в зонах перекрытия. Политика выбирает, чье значение
// побеждает: первый сегмент, последний или максимум.
// Выходная ось строго возрастает, иначе ErrNonMonotonicAxis.
func Stitch(spectra []models.Spectrum, policy models.StitchPolicy) (*models.StitchedTrace, error) {
	if len(spectra) == 0 {
		return nil, ErrNoData
	}

	switch policy {
	case models.StitchKeepFirst, models.StitchKeepLast, models.StitchKeepMax:
	default:
		return nil, fmt.Errorf("неизвестная политика склейки '%s'", policy)
	}

	var freqs, amps []float64

	for _, sp := range spectra {
		if len(sp.Freqs) != len(sp.Amps) {
			return nil, fmt.Errorf("%w: сегмент %d: %d частот против %d амплитуд",
				ErrAxisMismatch, sp.SegmentIndex, len(sp.Freqs), len(sp.Amps))
		}
		if err := checkIncreasing(sp.Freqs, sp.SegmentIndex); err != nil {
			return nil, err
		}
		if len(sp.Freqs) == 0 {
			continue
		}

		if len(freqs) == 0 {
			freqs = append(freqs, sp.Freqs...)
			amps = append(amps, sp.Amps...)
			continue
		}

		lastFreq := freqs[len(freqs)-1]

		switch policy {
		case models.StitchKeepFirst:
			// Перекрывающиеся точки нового сегмента отбрасываются
			for i, f := range sp.Freqs {
				if f > lastFreq+axisTolerance {
					freqs = append(freqs, sp.Freqs[i:]...)
					amps = append(amps, sp.Amps[i:]...)
					break
				}
			}

		case models.StitchKeepLast:
			// Хвост предыдущего сегмента уступает новому
			newStart := sp.Freqs[0]
			cut := len(freqs)
			for cut > 0 && freqs[cut-1] >= newStart-axisTolerance {
				cut--
			}
			freqs = append(freqs[:cut], sp.Freqs...)
			amps = append(amps[:cut], sp.Amps...)

		case models.StitchKeepMax:
			// В зоне перекрытия номинальные бины совпадают: берем максимум;
			// точки без совпадающего бина пропускаются
			for i, f := range sp.Freqs {
				if f > lastFreq+axisTolerance {
					freqs = append(freqs, sp.Freqs[i:]...)
					amps = append(amps, sp.Amps[i:]...)
					break
				}
				if j, ok := findBin(freqs, f); ok {
					amps[j] = math.Max(amps[j], sp.Amps[i])
				}
			}
		}
	}

	if err := checkIncreasing(freqs, -1); err != nil {
		return nil, err
	}

	return &models.StitchedTrace{Freqs: freqs, Amps: amps, Policy: policy}, nil
}

func checkIncreasing(freqs []float64, segment int) error {
	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			if segment >= 0 {
				return fmt.Errorf("%w: сегмент %d, бин %d", ErrNonMonotonicAxis, segment, i)
			}
			return fmt.Errorf("%w: бин %d после склейки", ErrNonMonotonicAxis, i)
		}
	}
	return nil
}

// findBin ищет в возрастающей оси бин с частотой f (с допуском)
func findBin(freqs []float64, f float64) (int, bool) {
	lo, hi := 0, len(freqs)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case math.Abs(freqs[mid]-f) <= axisTolerance:
			return mid, true
		case freqs[mid] < f:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}
