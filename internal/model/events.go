package model

// EventType - тип события для UI.
type EventType string

const (
	EventNarrativeAppend  EventType = "narrative_append"
	EventChoiceSlotAppend EventType = "choice_slot_append"
	EventImageUpdated     EventType = "image_updated"
	EventSessionClosed    EventType = "session_closed"
	EventFailure          EventType = "failure"
	EventSignal           EventType = "signal"
)

// FailureKind различает источник фатальной ошибки.
type FailureKind string

const (
	FailureStream FailureKind = "stream"
	FailureImage  FailureKind = "image"
)

// SignalKind - сигналы победы и смерти из текста модели.
type SignalKind string

const (
	SignalWin   SignalKind = "win"
	SignalDeath SignalKind = "death"
)

// UIEvent - исходящее событие для слоя представления.
type UIEvent struct {
	Type    EventType   `json:"type"`
	Slot    int         `json:"slot"`
	Text    string      `json:"text,omitempty"`
	Clear   bool        `json:"clear,omitempty"`
	Image   []byte      `json:"image,omitempty"` // base64 в JSON
	Failure FailureKind `json:"failure,omitempty"`
	Signal  SignalKind  `json:"signal,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NarrativeAppend(text string, clearFirst bool) UIEvent {
	return UIEvent{Type: EventNarrativeAppend, Text: text, Clear: clearFirst}
}

func ChoiceSlotAppend(slot int, text string, clearFirst bool) UIEvent {
	return UIEvent{Type: EventChoiceSlotAppend, Slot: slot, Text: text, Clear: clearFirst}
}

func ImageUpdated(data []byte) UIEvent {
	return UIEvent{Type: EventImageUpdated, Image: data}
}

func SessionClosed() UIEvent {
	return UIEvent{Type: EventSessionClosed}
}

func Failure(kind FailureKind, err error) UIEvent {
	ev := UIEvent{Type: EventFailure, Failure: kind}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func Signal(kind SignalKind) UIEvent {
	return UIEvent{Type: EventSignal, Signal: kind}
}
