package game_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novel-game/internal/game"
	"novel-game/internal/model"
)

func TestFormatTurnMessage(t *testing.T) {
	tests := []struct {
		name  string
		index int
		turn  int
		tally model.MoralTally
		event string
		want  string
	}{
		{
			name:  "no random event",
			index: 1,
			turn:  2,
			tally: model.MoralTally{Neutral: 1},
			want:  "ACTION SELECTED: 2\n\nTurn: 2/5, Tally: G-0, N-1, E-0, Random Event: None",
		},
		{
			name:  "with random event",
			index: 0,
			turn:  4,
			tally: model.MoralTally{Good: 1, Neutral: 1, Evil: 1},
			event: "A storm rolls in",
			want:  "ACTION SELECTED: 1\n\nTurn: 4/5, Tally: G-1, N-1, E-1, Random Event: A storm rolls in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, game.FormatTurnMessage(tt.index, tt.turn, 5, tt.tally, tt.event))
		})
	}
}

func TestDumpTranscript_OverwritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\nstale\nstale\n"), 0o644))

	transcript := model.Transcript{
		{Role: model.RoleSystem, Content: "system"},
		{Role: model.RoleUser, Content: "hello"},
	}
	require.NoError(t, game.DumpTranscript(path, transcript))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "system\nhello\n", string(data))
}

func TestDumpTranscript_BadPath(t *testing.T) {
	err := game.DumpTranscript(filepath.Join(t.TempDir(), "missing", "messages.txt"), nil)
	assert.Error(t, err)
}
