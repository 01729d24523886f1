package model

// Роли сообщений диалога
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message - одно сообщение диалога с моделью.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript - упорядоченная история диалога.
type Transcript []Message

// Clone возвращает независимую копию, которую можно отдать воркеру.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Append добавляет сообщение с указанной ролью.
func (t *Transcript) Append(role, content string) {
	*t = append(*t, Message{Role: role, Content: content})
}
