package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"novel-game/internal/model"
	"novel-game/internal/parser"
)

// PromptDeriver строит промпт для очередной попытки генерации картинки.
// history - эффективные промпты прошлых успешных генераций сессии.
type PromptDeriver interface {
	Derive(ctx context.Context, base string, attempt int, history []string) (string, error)
}

// CleanImagePrompt убирает глифы фото и лишние пробелы из буфера промпта.
func CleanImagePrompt(raw string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, parser.GlyphPhoto, " ")), " ")
}

// StylePromptDeriver дописывает стиль сессии; начиная со второй попытки
// добавляет подсказку вариации, чтобы повтор не был копией отклоненного запроса.
type StylePromptDeriver struct {
	Style string
}

// Derive реализует PromptDeriver.
func (d StylePromptDeriver) Derive(_ context.Context, base string, attempt int, _ []string) (string, error) {
	prompt := CleanImagePrompt(base)
	if d.Style != "" {
		prompt += ", " + d.Style
	}
	if attempt > 1 {
		prompt += fmt.Sprintf(", alternative composition %d", attempt)
	}
	return prompt, nil
}

const imagePromptSystem = "You are a helpful assistant."

// ChatPromptDeriver просит модель переписать сцену в промпт для картинки,
// показывая прошлые промпты, чтобы кадры не повторялись.
// При ошибке модели используется Fallback.
type ChatPromptDeriver struct {
	Completer TextCompleter
	Style     string
	Fallback  PromptDeriver
	Logger    *zap.Logger
}

// Derive реализует PromptDeriver.
func (d ChatPromptDeriver) Derive(ctx context.Context, base string, attempt int, history []string) (string, error) {
	messages := model.Transcript{{Role: model.RoleSystem, Content: imagePromptSystem}}
	for _, p := range history {
		messages.Append(model.RoleAssistant, p)
	}
	messages.Append(model.RoleUser, fmt.Sprintf(
		"Write one image generation prompt for the scene below in the style of %s. "+
			"It must not repeat any of your previous prompts. Attempt %d. Reply with the prompt only.\n\nScene: %s",
		d.Style, attempt, CleanImagePrompt(base)))

	prompt, err := d.Completer.CompleteChat(ctx, messages)
	prompt = strings.TrimSpace(prompt)
	if err == nil && prompt != "" {
		return prompt, nil
	}
	if d.Logger != nil {
		d.Logger.Warn("Image prompt derivation failed, using fallback", zap.Int("attempt", attempt), zap.Error(err))
	}
	if d.Fallback == nil {
		if err == nil {
			err = fmt.Errorf("%w: empty image prompt", ErrAIGenerationFailed)
		}
		return "", err
	}
	return d.Fallback.Derive(ctx, base, attempt, history)
}
