package instrument_service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

// scriptedTranslator отвечает заранее заданными значениями на set/get
type scriptedTranslator struct {
	mu       sync.Mutex
	setErr   error
	getValue models.TypedValue
	getErr   error
	calls    []models.AbstractCommand
	bindings []models.CommandBinding
}

func (s *scriptedTranslator) Translate(cmd models.AbstractCommand) (models.TypedValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cmd)

	switch cmd.Action {
	case models.ActionSet, models.ActionRig, models.ActionDo:
		return models.TypedValue{}, s.setErr
	case models.ActionGet, models.ActionNab:
		return s.getValue, s.getErr
	}
	return models.TypedValue{}, fmt.Errorf("неожиданное действие %s", cmd.Action)
}

func (s *scriptedTranslator) HasBinding(action models.Action, parameter string) bool {
	for _, b := range s.bindings {
		if b.Action == action && b.Parameter == parameter {
			return true
		}
	}
	return false
}

func (s *scriptedTranslator) Bindings() []models.CommandBinding {
	return s.bindings
}

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Enabled: false, Level: "ERROR"}, "TEST")
}

func TestManagerSetConfirmsWithGet(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: 1e6, Raw: "1000000"},
		bindings: []models.CommandBinding{
			{Model: "X100", Action: models.ActionGet, Parameter: "frequency_center"},
		},
	}
	eventBus := bus.NewBus(testLogger())
	events, unsubscribe := eventBus.Subscribe(bus.TopicStateChanged("frequency_center"), 4)
	defer unsubscribe()

	m := NewParameterManager("frequency_center", tr, eventBus, testLogger())
	defer m.Close()

	value, err := m.RequestSet("1000000")
	require.NoError(t, err)
	require.Equal(t, 1e6, value.Float, "Состояние берется из подтверждающего чтения, не из желаемого значения")

	state := m.State()
	require.False(t, state.Dirty)
	require.Equal(t, 1e6, state.Value.Float)

	select {
	case ev := <-events:
		changed, ok := ev.Payload.(models.StateChangedEvent)
		require.True(t, ok)
		require.Equal(t, "frequency_center", changed.Parameter)
	case <-time.After(time.Second):
		t.Fatal("событие state/changed не опубликовано")
	}
}

func TestManagerSetFailureKeepsState(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: 1e6},
		bindings: []models.CommandBinding{
			{Model: "X100", Action: models.ActionGet, Parameter: "frequency_center"},
		},
	}
	eventBus := bus.NewBus(testLogger())
	m := NewParameterManager("frequency_center", tr, eventBus, testLogger())
	defer m.Close()

	_, err := m.RequestSet("1000000")
	require.NoError(t, err)

	errCh, unsubscribe := eventBus.Subscribe(bus.TopicError("frequency_center"), 4)
	defer unsubscribe()

	tr.mu.Lock()
	tr.setErr = fmt.Errorf("прибор отказал")
	tr.mu.Unlock()

	_, err = m.RequestSet("2000000")
	require.Error(t, err)

	state := m.State()
	require.Equal(t, 1e6, state.Value.Float, "При ошибке set состояние остается прежним")

	select {
	case ev := <-errCh:
		errEvent, ok := ev.Payload.(models.ErrorEvent)
		require.True(t, ok)
		require.Equal(t, "frequency_center", errEvent.Parameter)
	case <-time.After(time.Second):
		t.Fatal("ошибка не опубликована на шину")
	}
}

func TestManagerSetWithoutValue(t *testing.T) {
	tr := &scriptedTranslator{}
	m := NewParameterManager("rbw", tr, bus.NewBus(testLogger()), testLogger())
	defer m.Close()

	_, err := m.RequestSet()
	require.Error(t, err)
	require.Empty(t, tr.calls, "Без значения к транслятору не обращаемся")
}

func TestManagerGetRefreshesState(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: -30.5},
	}
	m := NewParameterManager("ref_level", tr, bus.NewBus(testLogger()), testLogger())
	defer m.Close()

	value, err := m.RequestGet()
	require.NoError(t, err)
	require.Equal(t, -30.5, value.Float)
	require.Equal(t, -30.5, m.State().Value.Float)
}

func TestManagerSerializesRequests(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: 1},
	}
	m := NewParameterManager("rbw", tr, bus.NewBus(testLogger()), testLogger())
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.RequestGet()
		}()
	}
	wg.Wait()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.calls, 16, "Каждый запрос дошел до транслятора ровно один раз")
}

func TestServiceBuildsManagersForWritableBindings(t *testing.T) {
	tr := &scriptedTranslator{
		bindings: []models.CommandBinding{
			{Model: "X100", Action: models.ActionSet, Parameter: "frequency_center"},
			{Model: "X100", Action: models.ActionGet, Parameter: "frequency_center"},
			{Model: "X100", Action: models.ActionDo, Parameter: "preset"},
			{Model: "X100", Action: models.ActionGet, Parameter: "trace_data"},
		},
	}
	svc := NewInstrumentService(tr, bus.NewBus(testLogger()), testLogger())
	defer svc.Close()

	require.Equal(t, []string{"frequency_center", "preset"}, svc.Parameters(),
		"Менеджеры только у записываемых параметров, трасса читается воркерами напрямую")
}

func TestServiceDispatchesBusCommands(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: 2e6},
		bindings: []models.CommandBinding{
			{Model: "X100", Action: models.ActionSet, Parameter: "frequency_center"},
			{Model: "X100", Action: models.ActionGet, Parameter: "frequency_center"},
		},
	}
	eventBus := bus.NewBus(testLogger())
	svc := NewInstrumentService(tr, eventBus, testLogger())
	defer svc.Close()

	eventBus.Publish(bus.TopicCmdSet("frequency_center"), "", models.AbstractCommand{
		Action:    models.ActionSet,
		Parameter: "frequency_center",
		Values:    []string{"2000000"},
	})

	require.Eventually(t, func() bool {
		return svc.States()[0].Value.Float == 2e6
	}, 2*time.Second, 5*time.Millisecond, "Команда с шины должна дойти до менеджера")
}

func TestServiceDispatchesBusGet(t *testing.T) {
	tr := &scriptedTranslator{
		getValue: models.TypedValue{Kind: models.ParseFloat, Float: -41.5},
		bindings: []models.CommandBinding{
			{Model: "X100", Action: models.ActionSet, Parameter: "ref_level"},
			{Model: "X100", Action: models.ActionGet, Parameter: "ref_level"},
		},
	}
	eventBus := bus.NewBus(testLogger())
	svc := NewInstrumentService(tr, eventBus, testLogger())
	defer svc.Close()

	eventBus.Publish(bus.TopicCmdGet("ref_level"), "", nil)

	require.Eventually(t, func() bool {
		return svc.States()[0].Value.Float == -41.5
	}, 2*time.Second, 5*time.Millisecond, "GET с шины обновляет состояние менеджера")
}
