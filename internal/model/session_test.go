package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novel-game/internal/model"
)

func TestMoralTally_Record(t *testing.T) {
	var tally model.MoralTally

	assert.True(t, tally.Record(0))
	assert.True(t, tally.Record(1))
	assert.True(t, tally.Record(1))
	assert.True(t, tally.Record(2))
	assert.False(t, tally.Record(3))
	assert.False(t, tally.Record(-1))

	assert.Equal(t, model.MoralTally{Good: 1, Neutral: 2, Evil: 1}, tally)
	assert.Equal(t, 4, tally.Total())
}

func TestNewSession(t *testing.T) {
	seed := model.Transcript{{Role: model.RoleSystem, Content: "s"}}
	s := model.NewSession(seed, 5)

	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, model.StateInitializing, s.State)
	assert.Zero(t, s.MoralTally.Total())

	seed[0].Content = "changed"
	assert.Equal(t, "s", s.Transcript[0].Content, "session keeps its own copy of the seed")
}

func TestSessionSnapshot_JSON(t *testing.T) {
	s := model.NewSession(model.Transcript{{Role: model.RoleUser, Content: "hi"}}, 5)
	s.State = model.StateAwaitingChoice
	s.ImagePrompts = []string{"a cabin"}

	snap := s.Snapshot()
	s.ImagePrompts[0] = "mutated"

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "awaiting_choice", body["state"])
	assert.EqualValues(t, 1, body["transcript_length"])
	assert.Equal(t, []any{"a cabin"}, body["image_prompts"])
}

func TestTranscript_CloneAndAppend(t *testing.T) {
	var tr model.Transcript
	tr.Append(model.RoleUser, "one")
	clone := tr.Clone()
	tr.Append(model.RoleAssistant, "two")

	assert.Len(t, clone, 1)
	assert.Len(t, tr, 2)
	assert.Nil(t, model.Transcript(nil).Clone())
}

func TestChoiceEvent_Valid(t *testing.T) {
	for i := range model.ChoiceSlots {
		assert.True(t, model.ChoiceEvent{Index: i}.Valid())
	}
	assert.False(t, model.ChoiceEvent{Index: model.ChoiceSlots}.Valid())
	assert.False(t, model.ChoiceEvent{Index: -1}.Valid())
}

func TestUIEvent_JSON(t *testing.T) {
	data, err := json.Marshal(model.Failure(model.FailureStream, assert.AnError))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"failure","slot":0,"failure":"stream","error":"`+assert.AnError.Error()+`"}`, string(data))

	data, err = json.Marshal(model.ChoiceSlotAppend(2, "", true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"choice_slot_append","slot":2,"clear":true}`, string(data))
}
