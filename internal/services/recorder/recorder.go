package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
)

// Recorder пишет табличные результаты скана: по одному CSV на сегмент
// плюс один склеенный CSV и parquet-архив сырых отсчетов на запуск.
type Recorder struct {
	logger *logging.Logger
}

func NewRecorder(logger *logging.Logger) *Recorder {
	return &Recorder{logger: logger.WithPrefix("RECORDER")}
}

// EnsureRunDir создает выходную директорию запуска
func (r *Recorder) EnsureRunDir(baseDir, runID string) (string, error) {
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("не удалось создать выходную директорию '%s': %w", dir, err)
	}
	return dir, nil
}

// WriteSegmentCSV пишет спектр одного сегмента: строка = (частота, амплитуда)
func (r *Recorder) WriteSegmentCSV(dir string, sp models.Spectrum) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("segment_%03d.csv", sp.SegmentIndex))
	if err := writeCSV(path, sp.Freqs, sp.Amps); err != nil {
		return "", err
	}
	r.logger.Info("Segment written", "path", path, "points", len(sp.Freqs))
	return path, nil
}

// WriteStitchedCSV пишет склеенную трассу всего запуска
func (r *Recorder) WriteStitchedCSV(dir string, trace *models.StitchedTrace) (string, error) {
	path := filepath.Join(dir, "stitched.csv")
	if err := writeCSV(path, trace.Freqs, trace.Amps); err != nil {
		return "", err
	}
	r.logger.Info("Stitched trace written", "path", path, "points", len(trace.Freqs))
	return path, nil
}

func writeCSV(path string, freqs, amps []float64) error {
	if len(freqs) != len(amps) {
		return fmt.Errorf("длины осей не совпадают: %d против %d", len(freqs), len(amps))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("не удалось создать файл '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"frequency_hz", "amplitude_dbm"}); err != nil {
		return err
	}
	for i := range freqs {
		row := []string{
			strconv.FormatFloat(freqs[i], 'f', 3, 64),
			strconv.FormatFloat(amps[i], 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
