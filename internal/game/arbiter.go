package game

import (
	"sync"

	"novel-game/internal/model"
)

// InputArbiter - единственный слот выбора игрока под одной блокировкой.
// Выбор принимается только в состоянии StateAwaitingChoice; клики во
// время стрима молча отбрасываются.
type InputArbiter struct {
	mu         sync.Mutex
	state      model.GameState
	pending    int
	hasPending bool
	notify     chan struct{}
}

// NewInputArbiter создает арбитр в состоянии StateInitializing.
func NewInputArbiter() *InputArbiter {
	return &InputArbiter{notify: make(chan struct{}, 1)}
}

// Submit пытается занять слот выбором index. Возвращает false, если окно
// приема закрыто, индекс вне диапазона или выбор на этом ходу уже сделан.
func (a *InputArbiter) Submit(index int) bool {
	if !(model.ChoiceEvent{Index: index}).Valid() {
		return false
	}

	a.mu.Lock()
	if a.state != model.StateAwaitingChoice || a.hasPending {
		a.mu.Unlock()
		return false
	}
	a.pending = index
	a.hasPending = true
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
	return true
}

// Consume атомарно читает и очищает слот. Выбор, замеченный вне окна
// приема, очищается и не возвращается.
func (a *InputArbiter) Consume() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	index, ok := a.pending, a.hasPending
	a.pending, a.hasPending = 0, false
	if a.state != model.StateAwaitingChoice {
		return 0, false
	}
	return index, ok
}

// SetState переключает окно приема. Любое состояние кроме
// StateAwaitingChoice сбрасывает несобранный выбор.
func (a *InputArbiter) SetState(state model.GameState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = state
	if state != model.StateAwaitingChoice {
		a.pending, a.hasPending = 0, false
	}
}

// State возвращает текущее состояние окна приема.
func (a *InputArbiter) State() model.GameState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Notify сигналит управляющей горутине о новом выборе.
func (a *InputArbiter) Notify() <-chan struct{} {
	return a.notify
}
