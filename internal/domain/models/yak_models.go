package models

import "time"

// Action определяет тип абстрактной команды YAK
type Action string

const (
	ActionGet Action = "GET" // запрос текущего значения
	ActionSet Action = "SET" // установка значения
	ActionDo  Action = "DO"  // действие без значения (например, калибровка)
	ActionNab Action = "NAB" // пакетный запрос нескольких значений одной командой
	ActionRig Action = "RIG" // установка нескольких значений одной командой
)

// ParserKind определяет, как интерпретируется сырой ответ прибора
type ParserKind string

const (
	ParseNone      ParserKind = "none"
	ParseFloat     ParserKind = "float"
	ParseInt       ParserKind = "int"
	ParseBool      ParserKind = "bool"
	ParseString    ParserKind = "string"
	ParseFloatList ParserKind = "float_list"
)

// AbstractCommand - это аппаратно-независимая команда.
// Неизменяема после создания: новые значения означают новую команду.
type AbstractCommand struct {
	Action    Action   `json:"action"`
	Parameter string   `json:"parameter"`
	Values    []string `json:"values,omitempty"`
}

// CommandBinding - одна строка таблицы команд: привязка
// (модель прибора, действие, параметр) к шаблону wire-команды.
type CommandBinding struct {
	Model     string     `json:"model"`
	Action    Action     `json:"action"`
	Parameter string     `json:"parameter"`
	Template  string     `json:"template"`
	Parser    ParserKind `json:"parser"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	Units     string     `json:"units,omitempty"`
}

// TypedValue - типизированный результат разбора ответа прибора
type TypedValue struct {
	Kind   ParserKind `json:"kind"`
	Float  float64    `json:"float,omitempty"`
	Int    int64      `json:"int,omitempty"`
	Bool   bool       `json:"bool,omitempty"`
	Str    string     `json:"str,omitempty"`
	Floats []float64  `json:"floats,omitempty"`
	Raw    string     `json:"raw,omitempty"`
}

// InstrumentState - последнее подтвержденное значение одного параметра.
// Владелец - менеджер этого параметра; обновляется только после
// успешного обмена с прибором.
type InstrumentState struct {
	Parameter string     `json:"parameter"`
	Value     TypedValue `json:"value"`
	Dirty     bool       `json:"dirty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
