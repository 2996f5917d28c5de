package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

func spectrum(index int, freqs, amps []float64) models.Spectrum {
	return models.Spectrum{
		SegmentIndex: index,
		Freqs:        freqs,
		Amps:         amps,
		CapturedAt:   time.Now(),
	}
}

func TestAverageIdenticalSpectraIsIdentity(t *testing.T) {
	freqs := []float64{1e6, 2e6, 3e6}
	amps := []float64{-80, -75.5, -62}

	result, err := Average([][]float64{amps, amps, amps}, [][]float64{freqs, freqs, freqs}, false)
	require.NoError(t, err)
	require.InDeltaSlice(t, amps, result.Mean, 1e-12, "Среднее N одинаковых спектров равно самому спектру")
	require.Equal(t, freqs, result.Freqs)
}

func TestAverageIdenticalSpectraIsExact(t *testing.T) {
	freqs := []float64{1e6, 2e6}
	amps := []float64{-80, -70}

	// 7 повторов: деление на каждом шаге дало бы -79.99999999999999
	spectraAmps := make([][]float64, 7)
	axes := make([][]float64, 7)
	for i := range spectraAmps {
		spectraAmps[i] = amps
		axes[i] = freqs
	}

	result, err := Average(spectraAmps, axes, false)
	require.NoError(t, err)
	require.Equal(t, amps, result.Mean, "Среднее одинаковых спектров совпадает с входом побитово")
}

func TestAverageMeanAndMaxHold(t *testing.T) {
	freqs := []float64{1e6, 2e6}
	a := []float64{-80, -60}
	b := []float64{-60, -80}

	result, err := Average([][]float64{a, b}, [][]float64{freqs, freqs}, true)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{-70, -70}, result.Mean, 1e-12)
	require.InDeltaSlice(t, []float64{-60, -60}, result.MaxHold, 1e-12)
}

func TestAverageAxisMismatch(t *testing.T) {
	_, err := Average(
		[][]float64{{-80, -75}, {-80, -75}},
		[][]float64{{1e6, 2e6}, {1e6, 2.5e6}},
		false,
	)
	require.ErrorIs(t, err, ErrAxisMismatch)

	_, err = Average(
		[][]float64{{-80, -75}, {-80}},
		[][]float64{{1e6, 2e6}, {1e6, 2e6}},
		false,
	)
	require.ErrorIs(t, err, ErrAxisMismatch)
}

func TestAverageNoData(t *testing.T) {
	_, err := Average(nil, nil, false)
	require.ErrorIs(t, err, ErrNoData)
}

func TestStitchKeepLast(t *testing.T) {
	a := spectrum(0, []float64{1, 2, 3}, []float64{-80, -79, -78})
	b := spectrum(1, []float64{3, 4, 5}, []float64{-50, -49, -48})

	trace, err := Stitch([]models.Spectrum{a, b}, models.StitchKeepLast)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, trace.Freqs)
	require.Equal(t, []float64{-80, -79, -50, -49, -48}, trace.Amps, "В перекрытии побеждает поздний сегмент")
}

func TestStitchKeepFirst(t *testing.T) {
	a := spectrum(0, []float64{1, 2, 3}, []float64{-80, -79, -78})
	b := spectrum(1, []float64{3, 4, 5}, []float64{-50, -49, -48})

	trace, err := Stitch([]models.Spectrum{a, b}, models.StitchKeepFirst)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, trace.Freqs)
	require.Equal(t, []float64{-80, -79, -78, -49, -48}, trace.Amps, "В перекрытии побеждает ранний сегмент")
}

func TestStitchKeepMax(t *testing.T) {
	a := spectrum(0, []float64{1, 2, 3}, []float64{-80, -79, -78})
	b := spectrum(1, []float64{3, 4, 5}, []float64{-90, -49, -48})

	trace, err := Stitch([]models.Spectrum{a, b}, models.StitchKeepMax)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, trace.Freqs)
	require.Equal(t, []float64{-80, -79, -78, -49, -48}, trace.Amps, "В совпадающем бине остается максимум")
}

// Склейка ассоциативна: stitch(stitch(A,B),C) == stitch(A,B,C)
func TestStitchAssociativity(t *testing.T) {
	a := spectrum(0, []float64{1, 2, 3}, []float64{-80, -79, -78})
	b := spectrum(1, []float64{3, 4, 5}, []float64{-50, -49, -48})
	c := spectrum(2, []float64{5, 6, 7}, []float64{-30, -29, -28})

	all, err := Stitch([]models.Spectrum{a, b, c}, models.StitchKeepLast)
	require.NoError(t, err)

	ab, err := Stitch([]models.Spectrum{a, b}, models.StitchKeepLast)
	require.NoError(t, err)
	paired, err := Stitch([]models.Spectrum{
		spectrum(0, ab.Freqs, ab.Amps),
		c,
	}, models.StitchKeepLast)
	require.NoError(t, err)

	require.Equal(t, all.Freqs, paired.Freqs)
	require.Equal(t, all.Amps, paired.Amps)
}

func TestStitchNonMonotonicAxis(t *testing.T) {
	bad := spectrum(0, []float64{1, 3, 2}, []float64{-80, -79, -78})
	_, err := Stitch([]models.Spectrum{bad}, models.StitchKeepLast)
	require.ErrorIs(t, err, ErrNonMonotonicAxis)
}

func TestStitchNoData(t *testing.T) {
	_, err := Stitch(nil, models.StitchKeepLast)
	require.ErrorIs(t, err, ErrNoData)
}

func TestIntermodThirdOrderTwoTone(t *testing.T) {
	// Классическая пара 100 и 101 МГц: продукты третьего порядка
	// обязаны лечь на 99 и 102 МГц
	result, err := Intermod([]float64{100e6, 101e6}, []int{3}, 0, 0, nil, nil)
	require.NoError(t, err)

	var freqs []float64
	for _, p := range result.Products {
		freqs = append(freqs, p.FrequencyHz)
		require.Equal(t, 3, p.Order)
		require.Equal(t, "High", p.Severity, "Третий порядок - самый опасный")
	}
	require.Contains(t, freqs, 99e6)
	require.Contains(t, freqs, 102e6)
}

func TestIntermodBandFilter(t *testing.T) {
	result, err := Intermod([]float64{100e6, 101e6}, []int{3}, 101.5e6, 103e6, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Products, 1, "В полосу попадает только 102 МГц")
	require.Equal(t, 102e6, result.Products[0].FrequencyHz)
}

func TestIntermodNeedsTwoTones(t *testing.T) {
	_, err := Intermod([]float64{100e6}, []int{3}, 0, 0, nil, nil)
	require.Error(t, err)
}

func TestIntermodRejectsEvenOrder(t *testing.T) {
	_, err := Intermod([]float64{100e6, 101e6}, []int{4}, 0, 0, nil, nil)
	require.Error(t, err)
}

func TestIntermodSeverityByOrder(t *testing.T) {
	result, err := Intermod([]float64{100e6, 110e6}, []int{3, 5, 7}, 0, 0, nil, nil)
	require.NoError(t, err)

	severities := map[int]string{}
	for _, p := range result.Products {
		severities[p.Order] = p.Severity
	}
	require.Equal(t, "High", severities[3])
	require.Equal(t, "Medium", severities[5])
	require.Equal(t, "Low", severities[7])
}

func TestIntermodNearestAmplitudeTieLowerFrequency(t *testing.T) {
	// Продукт 99 МГц ровно между 98 и 100: берется нижний бин
	traceFreqs := []float64{98e6, 100e6, 102e6}
	traceAmps := []float64{-40, -50, -60}

	result, err := Intermod([]float64{100e6, 101e6}, []int{3}, 98e6, 100e6, traceFreqs, traceAmps)
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	require.Equal(t, 99e6, result.Products[0].FrequencyHz)
	require.Equal(t, float64(-40), result.Products[0].AmplitudeDBm)
}
