package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Connect подключается к прибору.
// @Summary Подключиться к прибору
// @Description Открывает SCPI-сокет к анализатору и снимает его идентификацию (*IDN?).
// @Tags Connection
// @Produce json
// @Success 200 {object} models.ConnectionInfo "Информация о подключении"
// @Failure 500 {object} models.ErrorResponse "Прибор недоступен"
// @Router /connection [post]
func (h *Handler) Connect(c *gin.Context) {
	h.logger.Info("Attempting to connect to instrument")

	connInfo, err := h.usecase.Connect()
	if err != nil {
		h.InternalError(c, err)
		return
	}

	h.logger.Info("Instrument connected", "model", connInfo.Model)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connection_info": connInfo})
}

// Disconnect закрывает соединение с прибором.
// @Summary Отключиться от прибора
// @Tags Connection
// @Produce json
// @Success 200 {object} models.ErrorResponse "Соединение закрыто"
// @Router /connection [delete]
func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.usecase.Disconnect(); err != nil {
		h.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "instrument disconnected"})
}

// CheckConnection возвращает текущее состояние подключения.
// @Summary Проверить состояние подключения
// @Tags Connection
// @Produce json
// @Success 200 {object} models.ConnectionInfo "Статус 'healthy' или 'unhealthy'"
// @Router /connection [get]
func (h *Handler) CheckConnection(c *gin.Context) {
	connInfo := h.usecase.CheckConnection()
	status := "healthy"
	if !connInfo.Connected {
		status = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "connection_info": connInfo})
}
