package models

// ConnectionInfo - состояние подключения к прибору
type ConnectionInfo struct {
	Identity  string `json:"identity,omitempty"`
	Model     string `json:"model,omitempty"`
	Connected bool   `json:"connected"`
}

// StartScanRequest - запрос на запуск скана
type StartScanRequest struct {
	Plan ScanPlan `json:"plan" binding:"required"`
}

// SetParameterRequest - запрос на установку значения параметра
type SetParameterRequest struct {
	Values []string `json:"values" binding:"required"`
}

// IntermodRequest - запрос расчета интермодуляционных продуктов
type IntermodRequest struct {
	TonesHz     []float64 `json:"tones_hz" binding:"required"`
	Orders      []int     `json:"orders"`
	BandStartHz float64   `json:"band_start_hz"`
	BandStopHz  float64   `json:"band_stop_hz"`
}

// DisplayCommand - входящее сообщение дисплея по WebSocket.
// Действия set/get адресуют параметр, pause/resume/stop управляют сканом.
type DisplayCommand struct {
	Action    string   `json:"action"`
	Parameter string   `json:"parameter,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// ErrorResponse - стандартный ответ с ошибкой (для swagger-аннотаций)
type ErrorResponse struct {
	Status string      `json:"status"`
	Error  interface{} `json:"error"`
}
