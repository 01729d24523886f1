package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"novel-game/internal/mocks"
	"novel-game/internal/model"
	"novel-game/internal/service"
)

func TestCleanImagePrompt(t *testing.T) {
	assert.Equal(t, "A cabin in the woods", service.CleanImagePrompt("📷 A cabin\n  in the woods 📷"))
	assert.Empty(t, service.CleanImagePrompt(" 📷📷 "))
}

func TestStylePromptDeriver(t *testing.T) {
	d := service.StylePromptDeriver{Style: "oil painting"}

	first, err := d.Derive(context.Background(), "📷 A cabin ", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "A cabin, oil painting", first)

	second, err := d.Derive(context.Background(), "📷 A cabin ", 2, []string{first})
	require.NoError(t, err)
	assert.Equal(t, "A cabin, oil painting, alternative composition 2", second)
	assert.NotEqual(t, first, second)

	bare, err := service.StylePromptDeriver{}.Derive(context.Background(), "A cabin", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "A cabin", bare)
}

func TestChatPromptDeriver_UsesHistory(t *testing.T) {
	completer := mocks.NewMockAIClient(t)
	completer.On("CompleteChat", mock.Anything, mock.MatchedBy(func(msgs model.Transcript) bool {
		if len(msgs) != 4 {
			return false
		}
		last := msgs[3]
		return msgs[0].Role == model.RoleSystem &&
			msgs[1] == model.Message{Role: model.RoleAssistant, Content: "old one"} &&
			msgs[2] == model.Message{Role: model.RoleAssistant, Content: "old two"} &&
			last.Role == model.RoleUser &&
			strings.Contains(last.Content, "style of watercolor") &&
			strings.Contains(last.Content, "Attempt 2") &&
			strings.HasSuffix(last.Content, "Scene: A cabin")
	})).Return("  a cabin at dusk, watercolor \n", nil).Once()

	d := service.ChatPromptDeriver{Completer: completer, Style: "watercolor"}
	prompt, err := d.Derive(context.Background(), "📷A cabin📷", 2, []string{"old one", "old two"})
	require.NoError(t, err)
	assert.Equal(t, "a cabin at dusk, watercolor", prompt)
}

func TestChatPromptDeriver_FallbackOnError(t *testing.T) {
	completer := mocks.NewMockAIClient(t)
	completer.On("CompleteChat", mock.Anything, mock.Anything).Return("", service.ErrAIGenerationFailed).Once()

	d := service.ChatPromptDeriver{
		Completer: completer,
		Style:     "ink",
		Fallback:  service.StylePromptDeriver{Style: "ink"},
	}
	prompt, err := d.Derive(context.Background(), "A cabin", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "A cabin, ink", prompt)
}

func TestChatPromptDeriver_NoFallback(t *testing.T) {
	completer := mocks.NewMockAIClient(t)
	completer.On("CompleteChat", mock.Anything, mock.Anything).Return("   ", nil).Once()
	failing := errors.New("upstream down")
	completer.On("CompleteChat", mock.Anything, mock.Anything).Return("", failing).Once()

	d := service.ChatPromptDeriver{Completer: completer, Style: "ink"}

	_, err := d.Derive(context.Background(), "A cabin", 1, nil)
	assert.ErrorIs(t, err, service.ErrAIGenerationFailed)

	_, err = d.Derive(context.Background(), "A cabin", 2, nil)
	assert.ErrorIs(t, err, failing)
}
