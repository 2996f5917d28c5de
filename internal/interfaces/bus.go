package interfaces

import "github.com/iwtcode/spectrumService/internal/domain/models"

// EventBus - единственный путь обмена между менеджерами, воркерами,
// оркестратором и внешним дисплеем. Ни один компонент не держит прямой
// ссылки на внутреннее состояние другого.
type EventBus interface {
	// Publish не блокируется на медленных подписчиках
	Publish(topic, runID string, payload interface{})
	// Subscribe возвращает канал событий и функцию отписки.
	// Шаблон поддерживает '+' (один уровень) и '#' (хвост).
	Subscribe(pattern string, buffer int) (<-chan models.Event, func())
}
