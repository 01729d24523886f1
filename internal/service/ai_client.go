package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"novel-game/internal/config"
	"novel-game/internal/model"
)

// ErrAIGenerationFailed - ошибка сервиса генерации текста (сеть, API).
var ErrAIGenerationFailed = errors.New("ai text generation failed")

// ErrStreamTruncated - поток закрылся, не прислав финальный фрагмент.
// Считается нарушением протокола и обрабатывается как сбой генерации.
var ErrStreamTruncated = errors.New("stream ended without a final fragment")

// TextStreamer открывает один потоковый запрос к модели.
//
// Возвращаемая последовательность ленивая и одноразовая: запрос уходит при
// первой итерации, последовательность заканчивается сразу после фрагмента с
// IsFinal. Ошибка отдается последним элементом.
type TextStreamer interface {
	StreamChat(ctx context.Context, messages model.Transcript) iter.Seq2[model.StreamFragment, error]
}

// TextCompleter делает обычный (не потоковый) запрос.
type TextCompleter interface {
	CompleteChat(ctx context.Context, messages model.Transcript) (string, error)
}

// AIClient - клиент сервиса генерации текста.
type AIClient interface {
	TextStreamer
	TextCompleter
}

// NewAIClient создает клиент в зависимости от конфигурации.
func NewAIClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.ClientType) {
	case config.AIClientOpenAI:
		logger.Info("Using AI client implementation: OpenAI",
			zap.String("base_url", cfg.BaseURL), zap.String("model", cfg.Model), zap.Duration("timeout", cfg.Timeout))
		return &openAIClient{
			client: newOpenAIClient(cfg),
			model:  cfg.Model,
			logger: logger.Named("openai"),
		}, nil
	case config.AIClientOllama:
		logger.Info("Using AI client implementation: Ollama",
			zap.String("base_url", cfg.BaseURL), zap.String("model", cfg.Model), zap.Duration("timeout", cfg.Timeout))
		return newOllamaClient(cfg, logger.Named("ollama"))
	default:
		return nil, fmt.Errorf("unknown AI client type '%s'", cfg.ClientType)
	}
}

func newOpenAIClient(cfg config.AIConfig) *openaigo.Client {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	openaiConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}
	return openaigo.NewClientWithConfig(openaiConfig)
}

// --- OpenAI ---

type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func toOpenAIMessages(t model.Transcript) []openaigo.ChatCompletionMessage {
	out := make([]openaigo.ChatCompletionMessage, 0, len(t))
	for _, m := range t {
		out = append(out, openaigo.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// StreamChat реализует TextStreamer через CreateChatCompletionStream.
func (c *openAIClient) StreamChat(ctx context.Context, messages model.Transcript) iter.Seq2[model.StreamFragment, error] {
	return func(yield func(model.StreamFragment, error) bool) {
		request := openaigo.ChatCompletionRequest{
			Model:    c.model,
			Messages: toOpenAIMessages(messages),
			Stream:   true,
		}

		c.logger.Debug("Sending stream request", zap.Int("messages", len(messages)))
		startTime := time.Now()
		stream, err := c.client.CreateChatCompletionStream(ctx, request)
		if err != nil {
			aiRequestsTotal.WithLabelValues(c.model, "error_stream_init").Inc()
			yield(model.StreamFragment{}, fmt.Errorf("%w: failed to open stream: %v", ErrAIGenerationFailed, err))
			return
		}
		defer stream.Close()

		var completion strings.Builder
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				aiRequestsTotal.WithLabelValues(c.model, "error_stream_truncated").Inc()
				yield(model.StreamFragment{}, ErrStreamTruncated)
				return
			}
			if err != nil {
				aiRequestsTotal.WithLabelValues(c.model, "error_stream_read").Inc()
				yield(model.StreamFragment{}, fmt.Errorf("%w: failed to read stream: %v", ErrAIGenerationFailed, err))
				return
			}
			// Чанки только с usage приходят без choices
			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			final := choice.FinishReason != ""
			completion.WriteString(choice.Delta.Content)
			if !yield(model.StreamFragment{Text: choice.Delta.Content, IsFinal: final}, nil) {
				return
			}
			if final {
				duration := time.Since(startTime)
				aiRequestsTotal.WithLabelValues(c.model, "success_stream").Inc()
				aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
				if response.Usage != nil && response.Usage.CompletionTokens > 0 {
					aiCompletionTokens.WithLabelValues(c.model).Observe(float64(response.Usage.CompletionTokens))
				}
				c.logger.Debug("Stream finished",
					zap.Duration("duration", duration),
					zap.String("finish_reason", string(choice.FinishReason)),
					zap.Int("completion_bytes", completion.Len()))
				return
			}
		}
	}
}

// CompleteChat реализует TextCompleter.
func (c *openAIClient) CompleteChat(ctx context.Context, messages model.Transcript) (string, error) {
	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	})
	duration := time.Since(startTime)
	if err != nil {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	if resp.Usage.CompletionTokens > 0 {
		aiCompletionTokens.WithLabelValues(c.model).Observe(float64(resp.Usage.CompletionTokens))
	}
	return resp.Choices[0].Message.Content, nil
}

// --- Ollama ---

// errStopStream прерывает колбэк Chat, когда потребитель перестал читать.
var errStopStream = errors.New("stream consumer stopped")

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", ollamaBaseURL, err)
	}

	// Таймаут на весь стрим задается контекстом, а не http.Client
	client := api.NewClient(parsedURL, &http.Client{})
	return &ollamaClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func toOllamaMessages(t model.Transcript) []api.Message {
	out := make([]api.Message, 0, len(t))
	for _, m := range t {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// StreamChat реализует TextStreamer через api.Client.Chat.
// Колбэк Chat вызывается синхронно, поэтому yield можно звать прямо из него.
func (c *ollamaClient) StreamChat(ctx context.Context, messages model.Transcript) iter.Seq2[model.StreamFragment, error] {
	return func(yield func(model.StreamFragment, error) bool) {
		stream := true
		req := &api.ChatRequest{
			Model:    c.model,
			Messages: toOllamaMessages(messages),
			Stream:   &stream,
		}

		requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		startTime := time.Now()
		done, stopped := false, false
		err := c.client.Chat(requestCtx, req, func(resp api.ChatResponse) error {
			if !yield(model.StreamFragment{Text: resp.Message.Content, IsFinal: resp.Done}, nil) {
				stopped = true
				return errStopStream
			}
			if resp.Done {
				done = true
				if resp.EvalCount > 0 {
					aiCompletionTokens.WithLabelValues(c.model).Observe(float64(resp.EvalCount))
				}
				c.logger.Debug("Stream finished", zap.String("done_reason", resp.DoneReason))
			}
			return nil
		})
		if stopped {
			return
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				c.logger.Warn("Ollama stream timed out", zap.Duration("timeout", c.timeout))
			}
			aiRequestsTotal.WithLabelValues(c.model, "error_stream").Inc()
			yield(model.StreamFragment{}, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err))
			return
		}
		if !done {
			aiRequestsTotal.WithLabelValues(c.model, "error_stream_truncated").Inc()
			yield(model.StreamFragment{}, ErrStreamTruncated)
			return
		}
		aiRequestsTotal.WithLabelValues(c.model, "success_stream").Inc()
		aiRequestDuration.WithLabelValues(c.model).Observe(time.Since(startTime).Seconds())
	}
}

// CompleteChat реализует TextCompleter.
func (c *ollamaClient) CompleteChat(ctx context.Context, messages model.Transcript) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}
	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(time.Since(startTime).Seconds())
	return resp.Message.Content, nil
}
