package model

import (
	"github.com/google/uuid"
)

// GameState описывает состояние машины ходов.
type GameState int

const (
	StateInitializing GameState = iota
	StateStreaming
	StateAwaitingChoice
	StateTerminated
)

func (s GameState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStreaming:
		return "streaming"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText позволяет отдавать состояние в JSON строкой.
func (s GameState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ChoiceSlots - количество вариантов действий за ход.
const ChoiceSlots = 3

// MoralTally - счетчики моральных выборов игрока.
type MoralTally struct {
	Good    int `json:"good"`
	Neutral int `json:"neutral"`
	Evil    int `json:"evil"`
}

// Record учитывает выбор: 0 - good, 1 - neutral, 2 - evil.
// Возвращает false для индекса вне диапазона.
func (t *MoralTally) Record(index int) bool {
	switch index {
	case 0:
		t.Good++
	case 1:
		t.Neutral++
	case 2:
		t.Evil++
	default:
		return false
	}
	return true
}

// Total - сумма всех счетчиков, всегда равна turn-1.
func (t MoralTally) Total() int {
	return t.Good + t.Neutral + t.Evil
}

// Session - состояние одной игровой сессии.
// Принадлежит управляющей горутине; остальные видят только SessionSnapshot.
type Session struct {
	ID           uuid.UUID
	State        GameState
	Turn         int
	MaxTurns     int
	MoralTally   MoralTally
	Transcript   Transcript
	ImageStyle   string
	ImagePrompts []string // Эффективные промпты успешно сгенерированных изображений

	WinSignaled   bool
	DeathSignaled bool
}

// NewSession создает сессию на первом ходу с заданным затравочным диалогом.
func NewSession(seed Transcript, maxTurns int) *Session {
	return &Session{
		ID:         uuid.New(),
		State:      StateInitializing,
		Turn:       1,
		MaxTurns:   maxTurns,
		Transcript: seed.Clone(),
	}
}

// SessionSnapshot - неизменяемый срез состояния сессии для чтения из других горутин.
type SessionSnapshot struct {
	ID               string     `json:"id"`
	State            GameState  `json:"state"`
	Turn             int        `json:"turn"`
	MaxTurns         int        `json:"max_turns"`
	MoralTally       MoralTally `json:"moral_tally"`
	TranscriptLength int        `json:"transcript_length"`
	ImagePrompts     []string   `json:"image_prompts"`
	Choices          []string   `json:"choices,omitempty"` // Текст слотов текущего хода
	WinSignaled      bool       `json:"win_signaled"`
	DeathSignaled    bool       `json:"death_signaled"`
}

// Snapshot копирует текущее состояние.
func (s *Session) Snapshot() SessionSnapshot {
	prompts := make([]string, len(s.ImagePrompts))
	copy(prompts, s.ImagePrompts)
	return SessionSnapshot{
		ID:               s.ID.String(),
		State:            s.State,
		Turn:             s.Turn,
		MaxTurns:         s.MaxTurns,
		MoralTally:       s.MoralTally,
		TranscriptLength: len(s.Transcript),
		ImagePrompts:     prompts,
		WinSignaled:      s.WinSignaled,
		DeathSignaled:    s.DeathSignaled,
	}
}
