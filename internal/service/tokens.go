package service

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"novel-game/internal/model"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter оценивает размер диалога в токенах.
type TokenCounter interface {
	CountTranscript(t model.Transcript) int
}

// tiktokenCounter лениво загружает кодировку модели. Если кодировку получить
// не удалось, все оценки возвращают -1.
type tiktokenCounter struct {
	modelName string
	once      sync.Once
	enc       *tiktoken.Tiktoken
}

// NewTokenCounter создает счетчик токенов для указанной модели.
func NewTokenCounter(modelName string) TokenCounter {
	return &tiktokenCounter{modelName: modelName}
}

func (c *tiktokenCounter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.modelName)
		if err != nil {
			// Неизвестная модель (ollama и т.п.) - берем общую кодировку
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
		}
		if err == nil {
			c.enc = enc
		}
	})
	return c.enc
}

func (c *tiktokenCounter) count(text string) int {
	enc := c.encoding()
	if enc == nil {
		return -1
	}
	return len(enc.Encode(text, nil, nil))
}

// CountTranscript считает токены содержимого всех сообщений.
func (c *tiktokenCounter) CountTranscript(t model.Transcript) int {
	if c.encoding() == nil {
		return -1
	}
	total := 0
	for _, m := range t {
		total += c.count(m.Content)
	}
	return total
}
