package handlers

import (
	"net/http"

	"github.com/iwtcode/spectrumService/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// ListParameters возвращает состояния всех управляемых параметров.
// @Summary Список параметров
// @Description Возвращает последние подтвержденные значения всех параметров прибора.
// @Tags Parameters
// @Produce json
// @Success 200 {array} models.InstrumentState "Состояния параметров"
// @Router /parameters [get]
func (h *Handler) ListParameters(c *gin.Context) {
	states := h.usecase.ListParameters()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "parameters": states})
}

// GetParameter читает значение параметра с прибора.
// @Summary Прочитать параметр
// @Description Выполняет чтение с прибора и возвращает типизированное значение.
// @Tags Parameters
// @Produce json
// @Param name path string true "Имя параметра (e.g. 'frequency_center')"
// @Success 200 {object} models.TypedValue "Текущее значение"
// @Failure 404 {object} models.ErrorResponse "Нет привязки для параметра"
// @Failure 504 {object} models.ErrorResponse "Прибор не ответил"
// @Router /parameters/{name} [get]
func (h *Handler) GetParameter(c *gin.Context) {
	name := c.Param("name")

	value, err := h.usecase.GetParameter(name)
	if err != nil {
		h.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "parameter": name, "value": value})
}

// SetParameter устанавливает значение параметра.
// @Summary Установить параметр
// @Description Транслирует значение в команду прибора, выполняет ее и подтверждает чтением.
// @Tags Parameters
// @Accept json
// @Produce json
// @Param name path string true "Имя параметра"
// @Param input body models.SetParameterRequest true "Значения для установки"
// @Success 200 {object} models.TypedValue "Подтвержденное значение"
// @Failure 400 {object} models.ErrorResponse "Значение вне допустимого диапазона"
// @Failure 404 {object} models.ErrorResponse "Нет привязки для параметра"
// @Router /parameters/{name} [put]
func (h *Handler) SetParameter(c *gin.Context) {
	name := c.Param("name")

	var req models.SetParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	h.logger.Info("Setting parameter", "parameter", name, "values", req.Values)

	value, err := h.usecase.SetParameter(name, req.Values...)
	if err != nil {
		h.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "parameter": name, "value": value})
}

// DoAction выполняет команду-действие без значения.
// @Summary Выполнить действие
// @Description Выполняет команду без аргументов и возвращаемого значения (e.g. 'preset').
// @Tags Parameters
// @Produce json
// @Param name path string true "Имя действия"
// @Success 200 {object} models.ErrorResponse "Действие выполнено"
// @Failure 404 {object} models.ErrorResponse "Нет привязки для действия"
// @Router /parameters/{name} [post]
func (h *Handler) DoAction(c *gin.Context) {
	name := c.Param("name")

	if err := h.usecase.DoAction(name); err != nil {
		h.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "action": name})
}
