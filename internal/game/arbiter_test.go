package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"novel-game/internal/model"
)

func TestInputArbiter_DropsChoiceOutsideWindow(t *testing.T) {
	a := NewInputArbiter()

	for _, state := range []model.GameState{model.StateInitializing, model.StateStreaming, model.StateTerminated} {
		a.SetState(state)
		assert.False(t, a.Submit(0), "state %s", state)
		_, ok := a.Consume()
		assert.False(t, ok, "state %s", state)
	}
	assert.Len(t, a.Notify(), 0)
}

func TestInputArbiter_AcceptsOneChoicePerWindow(t *testing.T) {
	a := NewInputArbiter()
	a.SetState(model.StateAwaitingChoice)

	assert.True(t, a.Submit(2))
	assert.False(t, a.Submit(0), "second click in the same window")
	assert.Len(t, a.Notify(), 1)

	index, ok := a.Consume()
	assert.True(t, ok)
	assert.Equal(t, 2, index)

	_, ok = a.Consume()
	assert.False(t, ok, "slot must be cleared after consume")
}

func TestInputArbiter_RejectsInvalidIndex(t *testing.T) {
	a := NewInputArbiter()
	a.SetState(model.StateAwaitingChoice)

	assert.False(t, a.Submit(-1))
	assert.False(t, a.Submit(model.ChoiceSlots))
	_, ok := a.Consume()
	assert.False(t, ok)
}

func TestInputArbiter_LeavingWindowClearsPending(t *testing.T) {
	a := NewInputArbiter()
	a.SetState(model.StateAwaitingChoice)
	assert.True(t, a.Submit(1))

	a.SetState(model.StateStreaming)
	a.SetState(model.StateAwaitingChoice)

	_, ok := a.Consume()
	assert.False(t, ok)
}
