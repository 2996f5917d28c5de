package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/iwtcode/spectrumService/internal/services/scan_service"
	"github.com/iwtcode/spectrumService/internal/services/yak_service"
	"github.com/iwtcode/spectrumService/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse возвращает стандартизированный ответ с ошибкой
func (h *Handler) ErrorResponse(c *gin.Context, err error, statusCode int, message string, showError bool) {
	appErr := errors.NewAppError(statusCode, message, err, showError)

	h.logger.Error(message, "error", err, "statusCode", statusCode)
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.ClientMessage(),
		},
	})
}

// BadRequest возвращает ошибку 400
func (h *Handler) BadRequest(c *gin.Context, err error, message string) {
	if message == "" {
		message = errors.BadRequest
	}
	h.ErrorResponse(c, err, http.StatusBadRequest, message, true)
}

// InternalError возвращает ошибку 500
func (h *Handler) InternalError(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusInternalServerError, errors.InternalServerError, false)
}

// NotFound возвращает ошибку 404
func (h *Handler) NotFound(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusNotFound, errors.NotFound, true)
}

// FromError подбирает HTTP-статус по доменной ошибке
func (h *Handler) FromError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, yak_service.ErrUnknownBinding):
		h.ErrorResponse(c, err, http.StatusNotFound, "unknown parameter binding", true)
	case stderrors.Is(err, yak_service.ErrOutOfRange):
		h.ErrorResponse(c, err, http.StatusBadRequest, "value out of range", true)
	case stderrors.Is(err, scan_service.ErrInvalidStateTransition):
		h.ErrorResponse(c, err, http.StatusConflict, "scan action not allowed in current state", true)
	case stderrors.Is(err, yak_service.ErrTransportTimeout):
		h.ErrorResponse(c, err, http.StatusGatewayTimeout, "instrument did not respond", true)
	case stderrors.Is(err, yak_service.ErrMalformedResponse):
		h.ErrorResponse(c, err, http.StatusBadGateway, "instrument response not parseable", true)
	case stderrors.Is(err, yak_service.ErrNotConnected):
		h.ErrorResponse(c, err, http.StatusServiceUnavailable, "instrument is not connected", true)
	default:
		h.InternalError(c, err)
	}
}
