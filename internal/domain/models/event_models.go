package models

import "time"

// Event - конверт сообщения на внутренней шине.
// Payload - структурированная запись (одна из моделей домена), не сырые байты.
type Event struct {
	Topic     string      `json:"topic"`
	RunID     string      `json:"run_id,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// StateChangedEvent публикуется менеджером после подтвержденной смены параметра
type StateChangedEvent struct {
	Parameter string     `json:"parameter"`
	Value     TypedValue `json:"value"`
}

// ErrorEvent публикуется вместо падения: ошибки менеджеров и транслятора
// локальны для вызвавшего их запроса
type ErrorEvent struct {
	Source    string `json:"source"`
	Parameter string `json:"parameter,omitempty"`
	Message   string `json:"message"`
}

// PeakEvent - непрерывно публикуемый активный пик маркера
type PeakEvent struct {
	FrequencyHz  float64 `json:"frequency_hz"`
	AmplitudeDBm float64 `json:"amplitude_dbm"`
}
