package game

import (
	"fmt"
	"os"
	"strings"

	"novel-game/internal/model"
)

const noRandomEvent = "None"

// FormatTurnMessage собирает сообщение игрока для следующего хода.
// index - номер выбранного слота с нуля, turn - уже увеличенный номер хода.
func FormatTurnMessage(index, turn, maxTurns int, tally model.MoralTally, randomEvent string) string {
	if randomEvent == "" {
		randomEvent = noRandomEvent
	}
	return fmt.Sprintf("ACTION SELECTED: %d\n\nTurn: %d/%d, Tally: G-%d, N-%d, E-%d, Random Event: %s",
		index+1, turn, maxTurns, tally.Good, tally.Neutral, tally.Evil, randomEvent)
}

// DumpTranscript перезаписывает файл содержимым диалога: одна строка на
// сообщение, роли не сохраняются. Это отладочный дамп, не сохранение игры.
func DumpTranscript(path string, t model.Transcript) error {
	var b strings.Builder
	for _, m := range t {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to dump transcript to %s: %w", path, err)
	}
	return nil
}
