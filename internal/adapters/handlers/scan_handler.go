package handlers

import (
	"net/http"

	"github.com/iwtcode/spectrumService/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// StartScan запускает выполнение плана сканирования.
// @Summary Запустить скан
// @Description Принимает план из сегментов и запускает его выполнение. Возвращает идентификатор запуска.
// @Tags Scan
// @Accept json
// @Produce json
// @Param input body models.StartScanRequest true "План сканирования"
// @Success 200 {object} models.ScanStatus "Запуск принят"
// @Failure 400 {object} models.ErrorResponse "Некорректный план"
// @Failure 409 {object} models.ErrorResponse "Скан уже выполняется"
// @Router /scan/start [post]
func (h *Handler) StartScan(c *gin.Context) {
	var req models.StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	h.logger.Info("Starting scan", "plan", req.Plan.Name, "segments", len(req.Plan.Segments))

	runID, err := h.usecase.StartScan(req.Plan)
	if err != nil {
		h.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": runID})
}

// PauseScan приостанавливает скан.
// @Summary Приостановить скан
// @Description Скан встает на паузу после завершения текущего сегмента.
// @Tags Scan
// @Produce json
// @Success 200 {object} models.ScanStatus "Скан приостановлен"
// @Failure 409 {object} models.ErrorResponse "Скан не выполняется"
// @Router /scan/pause [post]
func (h *Handler) PauseScan(c *gin.Context) {
	if err := h.usecase.PauseScan(); err != nil {
		h.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scan_status": h.usecase.ScanStatus()})
}

// ResumeScan продолжает приостановленный скан.
// @Summary Продолжить скан
// @Tags Scan
// @Produce json
// @Success 200 {object} models.ScanStatus "Скан продолжен"
// @Failure 409 {object} models.ErrorResponse "Скан не на паузе"
// @Router /scan/resume [post]
func (h *Handler) ResumeScan(c *gin.Context) {
	if err := h.usecase.ResumeScan(); err != nil {
		h.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scan_status": h.usecase.ScanStatus()})
}

// StopScan досрочно завершает скан.
// @Summary Остановить скан
// @Description Текущий захват дорабатывает, запуск закрывается с частичным результатом.
// @Tags Scan
// @Produce json
// @Success 200 {object} models.ScanStatus "Остановка принята"
// @Failure 409 {object} models.ErrorResponse "Скан не выполняется"
// @Router /scan/stop [post]
func (h *Handler) StopScan(c *gin.Context) {
	if err := h.usecase.StopScan(); err != nil {
		h.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scan_status": h.usecase.ScanStatus()})
}

// ScanStatus возвращает снимок состояния последнего запуска.
// @Summary Статус скана
// @Tags Scan
// @Produce json
// @Success 200 {object} models.ScanStatus "Текущий статус"
// @Router /scan/status [get]
func (h *Handler) ScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scan_status": h.usecase.ScanStatus()})
}

// ListRuns возвращает историю запусков.
// @Summary История запусков
// @Tags Scan
// @Produce json
// @Success 200 {array} entities.ScanRun "Сохраненные запуски, свежие первыми"
// @Router /scan/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.usecase.ListRuns()
	if err != nil {
		h.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "runs": runs})
}

// CalculateIntermod считает интермодуляционные продукты.
// @Summary Расчет интермодуляции
// @Description Считает продукты заданных порядков для набора тонов, привязывая амплитуды к последней склеенной трассе.
// @Tags Intermod
// @Accept json
// @Produce json
// @Param input body models.IntermodRequest true "Тоны и порядки"
// @Success 200 {object} models.IntermodResult "Рассчитанные продукты"
// @Failure 400 {object} models.ErrorResponse "Меньше двух тонов или четный порядок"
// @Router /intermod [post]
func (h *Handler) CalculateIntermod(c *gin.Context) {
	var req models.IntermodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	result, err := h.usecase.CalculateIntermod(req)
	if err != nil {
		h.BadRequest(c, err, "Intermod calculation rejected")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}
