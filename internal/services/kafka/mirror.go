package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

const produceTimeout = 5 * time.Second

// Mirror зеркалирует ключевые события шины во внешнюю Kafka: статусы
// сканов, склеенные трассы и активный пик. Ключ сообщения - топик шины,
// чтобы потребители могли партиционировать по типу события.
type Mirror struct {
	producer interfaces.KafkaService
	bus      interfaces.EventBus
	logger   *logging.Logger
	stopSubs []func()
}

func NewMirror(producer interfaces.KafkaService, eventBus interfaces.EventBus, logger *logging.Logger) *Mirror {
	return &Mirror{
		producer: producer,
		bus:      eventBus,
		logger:   logger.WithPrefix("KAFKA"),
	}
}

// Start подписывает зеркало на исходящие топики шины
func (m *Mirror) Start() {
	for _, pattern := range []string{bus.TopicScanStatus, bus.TopicStitched, bus.TopicPeak} {
		events, unsubscribe := m.bus.Subscribe(pattern, 64)
		m.stopSubs = append(m.stopSubs, unsubscribe)

		go func() {
			for ev := range events {
				value, err := json.Marshal(ev)
				if err != nil {
					m.logger.Warn("Event is not serializable", "topic", ev.Topic, "error", err)
					continue
				}

				ctx, cancel := context.WithTimeout(context.Background(), produceTimeout)
				err = m.producer.Produce(ctx, []byte(ev.Topic), value)
				cancel()
				if err != nil {
					m.logger.Warn("Failed to mirror event to Kafka", "topic", ev.Topic, "error", err)
				}
			}
		}()
	}

	m.logger.Info("Kafka mirror started")
}

func (m *Mirror) Stop() {
	for _, unsubscribe := range m.stopSubs {
		unsubscribe()
	}
}
