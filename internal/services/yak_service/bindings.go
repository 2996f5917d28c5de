package yak_service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
)

// Колонки CSV-таблицы команд
const (
	colModel = iota
	colAction
	colParameter
	colTemplate
	colParser
	colMin
	colMax
	colUnits
	columnCount
)

// WildcardModel - модель-заглушка: строка подходит любому прибору,
// у которого нет точной привязки.
const WildcardModel = "*"

type bindingKey struct {
	model     string
	action    models.Action
	parameter string
}

// BindingTable - статическая таблица (модель, действие, параметр) -> привязка.
// Загружается один раз на старте, дальше только читается.
type BindingTable struct {
	bindings map[bindingKey]models.CommandBinding
	ordered  []models.CommandBinding
}

// LoadBindings читает таблицу команд из CSV. Непонятные строки
// пропускаются с предупреждением - отсутствие строки всплывет позже как
// ErrUnknownBinding, падать при загрузке из-за нее незачем.
func LoadBindings(path string, logger *logging.Logger) (*BindingTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть таблицу команд '%s': %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать таблицу команд '%s': %w", path, err)
	}

	table := &BindingTable{bindings: make(map[bindingKey]models.CommandBinding)}

	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		binding, err := parseRow(row)
		if err != nil {
			logger.Warn("Skipping malformed command table row", "line", i+1, "error", err)
			continue
		}

		key := keyOf(binding.Model, binding.Action, binding.Parameter)
		if _, exists := table.bindings[key]; exists {
			return nil, fmt.Errorf("дубликат привязки (%s, %s, %s) в строке %d",
				binding.Model, binding.Action, binding.Parameter, i+1)
		}
		table.bindings[key] = binding
		table.ordered = append(table.ordered, binding)
	}

	logger.Info("Command table loaded", "path", path, "bindings", len(table.ordered))
	return table, nil
}

// Lookup ищет привязку сперва по точной модели, затем по '*'
func (t *BindingTable) Lookup(model string, action models.Action, parameter string) (models.CommandBinding, bool) {
	if b, ok := t.bindings[keyOf(model, action, parameter)]; ok {
		return b, true
	}
	if b, ok := t.bindings[keyOf(WildcardModel, action, parameter)]; ok {
		return b, true
	}
	return models.CommandBinding{}, false
}

// All возвращает привязки в порядке загрузки
func (t *BindingTable) All() []models.CommandBinding {
	out := make([]models.CommandBinding, len(t.ordered))
	copy(out, t.ordered)
	return out
}

func keyOf(model string, action models.Action, parameter string) bindingKey {
	return bindingKey{
		model:     strings.ToUpper(strings.TrimSpace(model)),
		action:    models.Action(strings.ToUpper(string(action))),
		parameter: strings.ToLower(strings.TrimSpace(parameter)),
	}
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "model")
}

func parseRow(row []string) (models.CommandBinding, error) {
	if len(row) < colParser+1 {
		return models.CommandBinding{}, fmt.Errorf("ожидается минимум %d колонок, получено %d", colParser+1, len(row))
	}

	action := models.Action(strings.ToUpper(strings.TrimSpace(row[colAction])))
	switch action {
	case models.ActionGet, models.ActionSet, models.ActionDo, models.ActionNab, models.ActionRig:
	default:
		return models.CommandBinding{}, fmt.Errorf("неизвестное действие '%s'", row[colAction])
	}

	parser := models.ParserKind(strings.ToLower(strings.TrimSpace(row[colParser])))
	switch parser {
	case models.ParseNone, models.ParseFloat, models.ParseInt, models.ParseBool, models.ParseString, models.ParseFloatList:
	case "":
		parser = models.ParseNone
	default:
		return models.CommandBinding{}, fmt.Errorf("неизвестный парсер '%s'", row[colParser])
	}

	binding := models.CommandBinding{
		Model:     strings.ToUpper(strings.TrimSpace(row[colModel])),
		Action:    action,
		Parameter: strings.ToLower(strings.TrimSpace(row[colParameter])),
		Template:  strings.TrimSpace(row[colTemplate]),
		Parser:    parser,
	}
	if binding.Model == "" || binding.Parameter == "" || binding.Template == "" {
		return models.CommandBinding{}, fmt.Errorf("пустая модель, параметр или шаблон")
	}

	if len(row) > colMin {
		if v, ok := parseOptionalFloat(row[colMin]); ok {
			binding.Min = &v
		}
	}
	if len(row) > colMax {
		if v, ok := parseOptionalFloat(row[colMax]); ok {
			binding.Max = &v
		}
	}
	if len(row) > colUnits {
		binding.Units = strings.TrimSpace(row[colUnits])
	}

	if binding.Min != nil && binding.Max != nil && *binding.Min > *binding.Max {
		return models.CommandBinding{}, fmt.Errorf("min %v больше max %v", *binding.Min, *binding.Max)
	}

	return binding, nil
}

func parseOptionalFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
