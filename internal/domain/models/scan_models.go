package models

import "time"

// Segment - один непрерывный поддиапазон частот, снимаемый как единый Spectrum
type Segment struct {
	StartHz float64 `json:"start_hz"`
	StopHz  float64 `json:"stop_hz"`
	RBWHz   float64 `json:"rbw_hz"`
	DwellMs int64   `json:"dwell_ms"`
}

// ScanPlan - упорядоченная последовательность сегментов.
// Неизменяем на все время выполнения скана.
type ScanPlan struct {
	Name     string    `json:"name"`
	Segments []Segment `json:"segments"`
}

// Spectrum - снятые отсчеты (частота, амплитуда) одного сегмента.
// Неизменяем после захвата.
type Spectrum struct {
	SegmentIndex int       `json:"segment_index"`
	Freqs        []float64 `json:"freqs_hz"`
	Amps         []float64 `json:"amps_dbm"`
	CapturedAt   time.Time `json:"captured_at"`
}

// StitchPolicy определяет, чье значение побеждает в зоне перекрытия сегментов
type StitchPolicy string

const (
	StitchKeepFirst StitchPolicy = "first"
	StitchKeepLast  StitchPolicy = "last"
	StitchKeepMax   StitchPolicy = "max"
)

// StitchedTrace - склейка спектров всех сегментов с разрешенными перекрытиями
type StitchedTrace struct {
	Freqs  []float64    `json:"freqs_hz"`
	Amps   []float64    `json:"amps_dbm"`
	Policy StitchPolicy `json:"policy"`
}

// IntermodProduct - одна расчетная интермодуляционная составляющая
type IntermodProduct struct {
	FrequencyHz  float64 `json:"frequency_hz"`
	AmplitudeDBm float64 `json:"amplitude_dbm"`
	Order        int     `json:"order"`
	Label        string  `json:"label"`
	Severity     string  `json:"severity"`
}

// IntermodResult - набор интермодуляционных продуктов для заданных тонов.
// Пересчитывается по требованию, не хранится как живое состояние.
type IntermodResult struct {
	Tones    []float64         `json:"tones_hz"`
	Orders   []int             `json:"orders"`
	Products []IntermodProduct `json:"products"`
}

// ScanStatus - снимок состояния оркестратора для scan/status и API
type ScanStatus struct {
	RunID         string `json:"run_id,omitempty"`
	State         string `json:"state"`
	SegmentIndex  int    `json:"segment_index"`
	SegmentsTotal int    `json:"segments_total"`
	Partial       bool   `json:"partial"`
	Error         string `json:"error,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
}
