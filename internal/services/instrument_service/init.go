package instrument_service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

// Service строит по менеджеру на каждый управляемый параметр из таблицы
// команд и раздает им команды с шины. Разные менеджеры работают с прибором
// конкурентно - их арбитрирует транспорт.
type Service struct {
	managers map[string]*ParameterManager
	bus      interfaces.EventBus
	logger   *logging.Logger
	stopSubs func()
}

func NewInstrumentService(translator interfaces.Translator, eventBus interfaces.EventBus, logger *logging.Logger) *Service {
	svc := &Service{
		managers: make(map[string]*ParameterManager),
		bus:      eventBus,
		logger:   logger.WithPrefix("INSTRUMENT"),
	}

	// Управляемый параметр - тот, для которого в таблице есть SET, RIG
	// или DO. Параметры только для чтения (трасса, маркеры) менеджера
	// не получают: их опрашивают воркеры напрямую через транслятор.
	for _, b := range translator.Bindings() {
		if b.Action != models.ActionSet && b.Action != models.ActionRig && b.Action != models.ActionDo {
			continue
		}
		if _, exists := svc.managers[b.Parameter]; exists {
			continue
		}
		svc.managers[b.Parameter] = NewParameterManager(b.Parameter, translator, eventBus, logger)
	}

	svc.subscribeCommands()

	svc.logger.Info("Parameter managers created", "count", len(svc.managers))
	return svc
}

// subscribeCommands подключает менеджеров к топикам cmd/<параметр>/set|get.
// Так дисплей управляет прибором, не видя ни транслятора, ни транспорта.
func (s *Service) subscribeCommands() {
	events, unsubscribe := s.bus.Subscribe(bus.TopicCmdAll, 64)
	s.stopSubs = unsubscribe

	go func() {
		for ev := range events {
			parts := strings.Split(ev.Topic, "/")
			if len(parts) != 3 {
				continue
			}
			parameter := parts[1]

			manager, ok := s.managers[parameter]
			if !ok {
				s.logger.Warn("Command for unmanaged parameter", "topic", ev.Topic)
				continue
			}

			switch ev.Topic {
			case bus.TopicCmdSet(parameter):
				cmd, ok := ev.Payload.(models.AbstractCommand)
				if !ok {
					s.logger.Warn("Unexpected payload on command topic", "topic", ev.Topic)
					continue
				}
				_, _ = manager.RequestSet(cmd.Values...)
			case bus.TopicCmdGet(parameter):
				_, _ = manager.RequestGet()
			}
		}
	}()
}

func (s *Service) Close() {
	if s.stopSubs != nil {
		s.stopSubs()
	}
	for _, m := range s.managers {
		m.Close()
	}
}

func (s *Service) RequestSet(parameter string, values ...string) (models.TypedValue, error) {
	m, ok := s.managers[parameter]
	if !ok {
		return models.TypedValue{}, fmt.Errorf("параметр '%s' не управляется: нет SET-привязки", parameter)
	}
	return m.RequestSet(values...)
}

func (s *Service) RequestGet(parameter string) (models.TypedValue, error) {
	m, ok := s.managers[parameter]
	if !ok {
		return models.TypedValue{}, fmt.Errorf("параметр '%s' не управляется", parameter)
	}
	return m.RequestGet()
}

func (s *Service) RequestDo(parameter string) error {
	m, ok := s.managers[parameter]
	if !ok {
		return fmt.Errorf("параметр '%s' не управляется", parameter)
	}
	return m.RequestDo()
}

func (s *Service) States() []models.InstrumentState {
	states := make([]models.InstrumentState, 0, len(s.managers))
	for _, m := range s.managers {
		states = append(states, m.State())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Parameter < states[j].Parameter })
	return states
}

func (s *Service) Parameters() []string {
	params := make([]string, 0, len(s.managers))
	for p := range s.managers {
		params = append(params, p)
	}
	sort.Strings(params)
	return params
}
