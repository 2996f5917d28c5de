package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/parquet-go"

	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// TraceSample - одна строка parquet-архива запуска
type TraceSample struct {
	Segment      int32   `parquet:"segment"`
	FrequencyHz  float64 `parquet:"frequency_hz"`
	AmplitudeDBm float64 `parquet:"amplitude_dbm"`
}

// WriteRunParquet складывает все снятые отсчеты запуска в один parquet-файл
// с планом скана в метаданных. Архив дополняет CSV: его удобно тянуть в
// аналитику целиком.
func (r *Recorder) WriteRunParquet(dir, runID string, plan models.ScanPlan, spectra []models.Spectrum) (string, error) {
	path := filepath.Join(dir, "trace.parquet")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("не удалось создать parquet-файл '%s': %w", path, err)
	}
	defer f.Close()

	planJSON, _ := json.Marshal(plan)
	writer := parquet.NewGenericWriter[TraceSample](f,
		parquet.KeyValueMetadata("run_id", runID),
		parquet.KeyValueMetadata("plan", string(planJSON)),
	)

	for _, sp := range spectra {
		rows := make([]TraceSample, len(sp.Freqs))
		for i := range sp.Freqs {
			rows[i] = TraceSample{
				Segment:      int32(sp.SegmentIndex),
				FrequencyHz:  sp.Freqs[i],
				AmplitudeDBm: sp.Amps[i],
			}
		}
		if _, err := writer.Write(rows); err != nil {
			return "", fmt.Errorf("ошибка записи parquet-строк: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ошибка завершения parquet-файла: %w", err)
	}

	r.logger.Info("Parquet archive written", "path", path, "segments", len(spectra))
	return path, nil
}
