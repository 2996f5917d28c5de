package bus

import (
	"strings"
	"sync"
	"time"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
)

// Логические топики шины. Иерархия как у MQTT: уровни через '/'.
const (
	TopicScanControl = "scan/control"
	TopicScanStatus  = "scan/status"
	TopicStitched    = "data/stitched"
	TopicIntermod    = "data/intermod"
	TopicPeak        = "data/peak"
	TopicCmdAll      = "cmd/#"
)

func TopicCmdSet(parameter string) string       { return "cmd/" + parameter + "/set" }
func TopicCmdGet(parameter string) string       { return "cmd/" + parameter + "/get" }
func TopicStateChanged(parameter string) string { return "state/" + parameter + "/changed" }
func TopicSpectrum(segment int) string {
	return "data/spectrum/" + itoa(segment)
}
func TopicError(source string) string { return "error/" + source }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [12]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

type subscriber struct {
	pattern string
	ch      chan models.Event
}

// Bus - внутренняя pub/sub шина. Публикация не блокируется: событие для
// подписчика с заполненным буфером отбрасывается с предупреждением.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *logging.Logger
}

func NewBus(logger *logging.Logger) interfaces.EventBus {
	return &Bus{
		subs:   make(map[*subscriber]struct{}),
		logger: logger.WithPrefix("BUS"),
	}
}

func (b *Bus) Publish(topic, runID string, payload interface{}) {
	ev := models.Event{
		Topic:     topic,
		RunID:     runID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !matchTopic(sub.pattern, topic) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("Subscriber is too slow, event dropped", "pattern", sub.pattern, "topic", topic)
		}
	}
}

func (b *Bus) Subscribe(pattern string, buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscriber{
		pattern: pattern,
		ch:      make(chan models.Event, buffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}

	return sub.ch, unsubscribe
}

// matchTopic сопоставляет топик с шаблоном: '+' закрывает один уровень,
// '#' - весь хвост.
func matchTopic(pattern, topic string) bool {
	if pattern == topic || pattern == "#" {
		return true
	}

	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")

	for i, p := range pp {
		if p == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if p != "+" && p != tp[i] {
			return false
		}
	}
	return len(pp) == len(tp)
}
