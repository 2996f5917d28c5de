package instrument_service

import (
	"fmt"
	"time"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

type queuedRequest struct {
	run  func()
	done chan struct{}
}

// ParameterManager владеет состоянием одного параметра прибора.
// Запросы проходят через приватную очередь и исполняются строго по одному
// в порядке поступления: два запроса одного параметра никогда не летят
// к прибору одновременно.
type ParameterManager struct {
	parameter  string
	translator interfaces.Translator
	bus        interfaces.EventBus
	logger     *logging.Logger

	queue chan queuedRequest
	stop  chan struct{}

	state models.InstrumentState
}

func NewParameterManager(parameter string, translator interfaces.Translator, eventBus interfaces.EventBus, logger *logging.Logger) *ParameterManager {
	m := &ParameterManager{
		parameter:  parameter,
		translator: translator,
		bus:        eventBus,
		logger:     logger.WithPrefix("MGR:" + parameter),
		queue:      make(chan queuedRequest, 16),
		stop:       make(chan struct{}),
		state:      models.InstrumentState{Parameter: parameter, Dirty: true},
	}
	go m.loop()
	return m
}

func (m *ParameterManager) Close() {
	close(m.stop)
}

// loop - единственная горутина, трогающая m.state
func (m *ParameterManager) loop() {
	for {
		select {
		case <-m.stop:
			return
		case req := <-m.queue:
			req.run()
			close(req.done)
		}
	}
}

// submit ставит запрос в очередь и ждет его выполнения
func (m *ParameterManager) submit(fn func()) {
	req := queuedRequest{run: fn, done: make(chan struct{})}
	select {
	case m.queue <- req:
		<-req.done
	case <-m.stop:
	}
}

// RequestSet устанавливает значение. Состояние обновляется только после
// успешного обмена: при ошибке оно остается прежним, а ошибка уходит
// событием на шину.
func (m *ParameterManager) RequestSet(values ...string) (models.TypedValue, error) {
	var result models.TypedValue
	var reqErr error

	m.submit(func() {
		if len(values) == 0 {
			reqErr = fmt.Errorf("параметру '%s' не передано значение", m.parameter)
			m.publishError(reqErr)
			return
		}

		_, err := m.translator.Translate(models.AbstractCommand{
			Action:    models.ActionSet,
			Parameter: m.parameter,
			Values:    values,
		})
		if err != nil {
			reqErr = err
			m.publishError(err)
			return
		}

		// Подтверждаем записанное значение чтением, если GET-привязка есть:
		// источник истины - прибор, не желаемое значение
		confirmed := models.TypedValue{Kind: models.ParseString, Str: values[0], Raw: values[0]}
		if m.translator.HasBinding(models.ActionGet, m.parameter) {
			confirmed, err = m.translator.Translate(models.AbstractCommand{
				Action:    models.ActionGet,
				Parameter: m.parameter,
			})
			if err != nil {
				reqErr = err
				m.publishError(err)
				return
			}
		}

		m.updateState(confirmed)
		result = confirmed
	})

	return result, reqErr
}

// RequestGet всегда освежает состояние авторитетным значением с прибора.
// Так ловится расхождение между желаемым и фактическим.
func (m *ParameterManager) RequestGet() (models.TypedValue, error) {
	var result models.TypedValue
	var reqErr error

	m.submit(func() {
		value, err := m.translator.Translate(models.AbstractCommand{
			Action:    models.ActionGet,
			Parameter: m.parameter,
		})
		if err != nil {
			reqErr = err
			m.publishError(err)
			return
		}
		m.updateState(value)
		result = value
	})

	return result, reqErr
}

// RequestDo - действие без значения (калибровка и т.п.)
func (m *ParameterManager) RequestDo() error {
	var reqErr error

	m.submit(func() {
		_, err := m.translator.Translate(models.AbstractCommand{
			Action:    models.ActionDo,
			Parameter: m.parameter,
		})
		if err != nil {
			reqErr = err
			m.publishError(err)
			return
		}
		m.bus.Publish(bus.TopicStateChanged(m.parameter), "", models.StateChangedEvent{
			Parameter: m.parameter,
			Value:     models.TypedValue{Kind: models.ParseNone},
		})
	})

	return reqErr
}

// State возвращает копию последнего подтвержденного состояния
func (m *ParameterManager) State() models.InstrumentState {
	var snapshot models.InstrumentState
	m.submit(func() {
		snapshot = m.state
	})
	return snapshot
}

func (m *ParameterManager) updateState(value models.TypedValue) {
	m.state = models.InstrumentState{
		Parameter: m.parameter,
		Value:     value,
		Dirty:     false,
		UpdatedAt: time.Now().UTC(),
	}
	m.bus.Publish(bus.TopicStateChanged(m.parameter), "", models.StateChangedEvent{
		Parameter: m.parameter,
		Value:     value,
	})
}

func (m *ParameterManager) publishError(err error) {
	m.logger.Error("Request failed", "error", err)
	m.bus.Publish(bus.TopicError(m.parameter), "", models.ErrorEvent{
		Source:    "manager",
		Parameter: m.parameter,
		Message:   err.Error(),
	})
}
