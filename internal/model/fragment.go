package model

// StreamFragment - очередной кусок потокового ответа модели.
// IsFinal выставлен только у последнего фрагмента ответа.
type StreamFragment struct {
	Text    string
	IsFinal bool
}

// ChoiceEvent - клик пользователя по одному из вариантов.
type ChoiceEvent struct {
	Index int `json:"index"`
}

// Valid проверяет, что индекс указывает на существующий слот.
func (c ChoiceEvent) Valid() bool {
	return c.Index >= 0 && c.Index < ChoiceSlots
}

// ImageJob - задача генерации изображения, живет в пределах ImageWorker.
type ImageJob struct {
	Prompt          string // Исходный промпт, собранный из потока
	EffectivePrompt string // Промпт последней попытки
	Attempt         int
	Result          []byte
	Err             error
}
