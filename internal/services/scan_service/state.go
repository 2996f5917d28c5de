package scan_service

import (
	"errors"
	"fmt"

	"github.com/iwtcode/spectrumService/internal/domain/entities"
)

// ErrInvalidStateTransition - недопустимое действие в текущем состоянии.
// Нелегальные переходы - структурная ошибка, не тихий no-op.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// runState - явное состояние оркестратора
type runState int

const (
	stateIdle runState = iota
	stateRunning
	statePaused
	stateStopping
	stateCompleted
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return entities.StatusIdle
	case stateRunning:
		return entities.StatusRunning
	case statePaused:
		return entities.StatusPaused
	case stateStopping:
		return entities.StatusStopping
	case stateCompleted:
		return entities.StatusCompleted
	case stateFailed:
		return entities.StatusFailed
	}
	return "unknown"
}

// controlKind - управляющее событие оркестратора
type controlKind int

const (
	ctrlStart controlKind = iota
	ctrlPause
	ctrlResume
	ctrlStop
	ctrlRunDone
	ctrlRunFailed
)

func (c controlKind) String() string {
	switch c {
	case ctrlStart:
		return "start"
	case ctrlPause:
		return "pause"
	case ctrlResume:
		return "resume"
	case ctrlStop:
		return "stop"
	case ctrlRunDone:
		return "run-done"
	case ctrlRunFailed:
		return "run-failed"
	}
	return "unknown"
}

// transition - единственная функция переходов состояния.
// Idle -> Running <-> Paused -> Stopping -> {Completed|Failed} -> Idle
func transition(from runState, ev controlKind) (runState, error) {
	switch ev {
	case ctrlStart:
		if from == stateIdle {
			return stateRunning, nil
		}
	case ctrlPause:
		if from == stateRunning {
			return statePaused, nil
		}
	case ctrlResume:
		if from == statePaused {
			return stateRunning, nil
		}
	case ctrlStop:
		if from == stateRunning || from == statePaused {
			return stateStopping, nil
		}
	case ctrlRunDone:
		if from == stateRunning || from == stateStopping {
			return stateCompleted, nil
		}
	case ctrlRunFailed:
		if from == stateRunning || from == statePaused || from == stateStopping {
			return stateFailed, nil
		}
	}
	return from, fmt.Errorf("%w: %s in state %s", ErrInvalidStateTransition, ev, from)
}
