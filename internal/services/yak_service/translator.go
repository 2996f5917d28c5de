package yak_service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/visa_service"
)

// Заглушки шаблона для RIG-команд: до 8 значений одной строкой
var rigPlaceholders = []string{"111", "222", "333", "444", "555", "666", "777", "888"}

// Translator превращает абстрактные команды в wire-команды конкретного
// прибора по таблице привязок. Поддержка новой модели - это новые строки
// таблицы, не новый код.
type Translator struct {
	table     *BindingTable
	transport interfaces.Transport

	maxRetries    int
	retryBackoff  time.Duration
	backoffFactor float64
	fallbackModel string

	logger *logging.Logger
}

func NewTranslator(cfg *config.AppConfig, table *BindingTable, transport interfaces.Transport, logger *logging.Logger) interfaces.Translator {
	return &Translator{
		table:         table,
		transport:     transport,
		maxRetries:    cfg.Yak.MaxRetries,
		retryBackoff:  cfg.Yak.RetryBackoff,
		backoffFactor: cfg.Yak.BackoffFactor,
		fallbackModel: cfg.Yak.FallbackModel,
		logger:        logger.WithPrefix("YAK"),
	}
}

func (t *Translator) HasBinding(action models.Action, parameter string) bool {
	_, ok := t.table.Lookup(t.model(), action, parameter)
	return ok
}

func (t *Translator) Bindings() []models.CommandBinding {
	return t.table.All()
}

// Translate выполняет ровно один логический обмен с прибором.
// При любой ошибке состояние никого не меняется: этим владеют менеджеры.
func (t *Translator) Translate(cmd models.AbstractCommand) (models.TypedValue, error) {
	binding, ok := t.table.Lookup(t.model(), cmd.Action, cmd.Parameter)
	if !ok {
		return models.TypedValue{}, fmt.Errorf("%w: (%s, %s, %s)",
			ErrUnknownBinding, t.model(), cmd.Action, cmd.Parameter)
	}

	// Проверка диапазона до какого-либо обращения к транспорту
	if err := validateRange(binding, cmd.Values); err != nil {
		return models.TypedValue{}, err
	}

	wire, err := renderTemplate(binding.Template, cmd.Values)
	if err != nil {
		return models.TypedValue{}, err
	}

	raw, err := t.exchange(wire, isQuery(binding, wire))
	if err != nil {
		return models.TypedValue{}, err
	}

	value, err := parseResponse(binding.Parser, raw)
	if err != nil {
		return models.TypedValue{}, err
	}

	t.logger.Debug("Command translated", "parameter", cmd.Parameter, "action", cmd.Action, "wire", wire)
	return value, nil
}

func (t *Translator) model() string {
	if m := t.transport.Model(); m != "" {
		return m
	}
	return t.fallbackModel
}

// exchange отправляет wire-команду с ограниченным числом повторов при
// таймауте. Остальные ошибки транспорта всплывают с первого раза.
func (t *Translator) exchange(wire string, query bool) (string, error) {
	if !t.transport.IsConnected() {
		return "", fmt.Errorf("%w: '%s'", ErrNotConnected, wire)
	}

	backoff := t.retryBackoff
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff = time.Duration(float64(backoff) * t.backoffFactor)
			t.logger.Warn("Retrying command after timeout", "wire", wire, "attempt", attempt)
		}

		var raw string
		var err error
		if query {
			raw, err = t.transport.Query(wire)
		} else {
			err = t.transport.Write(wire)
		}

		if err == nil {
			return raw, nil
		}
		if !visa_service.IsTimeout(err) {
			return "", fmt.Errorf("ошибка транспорта на команде '%s': %w", wire, err)
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: '%s' после %d попыток: %v", ErrTransportTimeout, wire, t.maxRetries+1, lastErr)
}

// isQuery: GET и NAB всегда читают ответ; остальные - только если шаблон
// заканчивается на '?' (BEG-стиль: установка с немедленным подтверждением)
func isQuery(binding models.CommandBinding, wire string) bool {
	if binding.Action == models.ActionGet || binding.Action == models.ActionNab {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(wire), "?")
}

func validateRange(binding models.CommandBinding, values []string) error {
	if binding.Min == nil && binding.Max == nil {
		return nil
	}
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: значение '%s' не числовое, диапазон [%s]", ErrOutOfRange, v, rangeString(binding))
		}
		// Границы включительные
		if binding.Min != nil && f < *binding.Min {
			return fmt.Errorf("%w: %v < min %v %s", ErrOutOfRange, f, *binding.Min, binding.Units)
		}
		if binding.Max != nil && f > *binding.Max {
			return fmt.Errorf("%w: %v > max %v %s", ErrOutOfRange, f, *binding.Max, binding.Units)
		}
	}
	return nil
}

func rangeString(b models.CommandBinding) string {
	min, max := "-inf", "+inf"
	if b.Min != nil {
		min = strconv.FormatFloat(*b.Min, 'g', -1, 64)
	}
	if b.Max != nil {
		max = strconv.FormatFloat(*b.Max, 'g', -1, 64)
	}
	return min + ", " + max
}

// renderTemplate подставляет значения в шаблон: либо нумерованные заглушки
// 111..888 (RIG), либо одиночная {value}
func renderTemplate(template string, values []string) (string, error) {
	wire := template

	if strings.Contains(wire, rigPlaceholders[0]) {
		if len(values) > len(rigPlaceholders) {
			return "", fmt.Errorf("шаблон поддерживает максимум %d значений, передано %d", len(rigPlaceholders), len(values))
		}
		for i, v := range values {
			if !strings.Contains(wire, rigPlaceholders[i]) {
				return "", fmt.Errorf("в шаблоне '%s' нет заглушки %s", template, rigPlaceholders[i])
			}
			wire = strings.Replace(wire, rigPlaceholders[i], strings.TrimSpace(v), 1)
		}
		return wire, nil
	}

	if strings.Contains(wire, "{value}") {
		if len(values) == 0 {
			return "", fmt.Errorf("шаблон '%s' требует значение, оно не передано", template)
		}
		wire = strings.ReplaceAll(wire, "{value}", strings.TrimSpace(values[0]))
	}

	return wire, nil
}

// parseResponse разбирает сырой ответ прибора согласно парсеру привязки
func parseResponse(kind models.ParserKind, raw string) (models.TypedValue, error) {
	value := models.TypedValue{Kind: kind, Raw: raw}
	trimmed := strings.TrimSpace(raw)

	switch kind {
	case models.ParseNone:
		return value, nil

	case models.ParseString:
		value.Str = trimmed
		return value, nil

	case models.ParseFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.TypedValue{}, fmt.Errorf("%w: ожидалось число, получено '%s'", ErrMalformedResponse, raw)
		}
		value.Float = f
		return value, nil

	case models.ParseInt:
		// Приборы часто отдают целые в экспоненциальной записи
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			value.Int = i
			return value, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.TypedValue{}, fmt.Errorf("%w: ожидалось целое, получено '%s'", ErrMalformedResponse, raw)
		}
		value.Int = int64(f)
		return value, nil

	case models.ParseBool:
		switch strings.ToUpper(trimmed) {
		case "1", "1.0", "ON", "TRUE":
			value.Bool = true
		case "0", "0.0", "OFF", "FALSE":
			value.Bool = false
		default:
			return models.TypedValue{}, fmt.Errorf("%w: ожидалось ON/OFF, получено '%s'", ErrMalformedResponse, raw)
		}
		return value, nil

	case models.ParseFloatList:
		fields := strings.FieldsFunc(trimmed, func(r rune) bool { return r == ';' || r == ',' })
		if len(fields) == 0 {
			return models.TypedValue{}, fmt.Errorf("%w: пустой список значений", ErrMalformedResponse)
		}
		floats := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return models.TypedValue{}, fmt.Errorf("%w: '%s' в списке не число", ErrMalformedResponse, f)
			}
			floats = append(floats, v)
		}
		value.Floats = floats
		return value, nil
	}

	return models.TypedValue{}, fmt.Errorf("%w: неизвестный парсер '%s'", ErrMalformedResponse, kind)
}
