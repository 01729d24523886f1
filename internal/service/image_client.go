package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"novel-game/internal/config"
)

// ErrImageGenerationFailed - сервис генерации не вернул ссылку на изображение.
var ErrImageGenerationFailed = errors.New("image generation failed")

// ErrImageFetchFailed - не удалось скачать сгенерированное изображение.
var ErrImageFetchFailed = errors.New("image fetch failed")

// ImageGenerator запрашивает генерацию изображения и возвращает ссылку на него.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ImageFetcher скачивает изображение по ссылке.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// openAIImageClient - генерация через OpenAI Images API.
// Параметры (модель, размер, качество, n=1) фиксированы конфигурацией.
type openAIImageClient struct {
	client *openaigo.Client
	cfg    config.ImageConfig
	logger *zap.Logger
}

// NewOpenAIImageGenerator создает ImageGenerator поверх go-openai.
func NewOpenAIImageGenerator(aiCfg config.AIConfig, imgCfg config.ImageConfig, logger *zap.Logger) ImageGenerator {
	return &openAIImageClient{
		client: newOpenAIClient(aiCfg),
		cfg:    imgCfg,
		logger: logger.Named("images"),
	}
}

// GenerateImage реализует ImageGenerator.
func (c *openAIImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Prompt:         prompt,
		Model:          c.cfg.Model,
		Size:           c.cfg.Size,
		Quality:        c.cfg.Quality,
		N:              1,
		ResponseFormat: openaigo.CreateImageResponseFormatURL,
	})
	if err != nil {
		imageRequestsTotal.WithLabelValues("generate", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		imageRequestsTotal.WithLabelValues("generate", "error_empty_response").Inc()
		return "", fmt.Errorf("%w: API returned no image URL", ErrImageGenerationFailed)
	}
	if resp.Data[0].RevisedPrompt != "" {
		c.logger.Debug("Image prompt revised by API", zap.String("revised_prompt", resp.Data[0].RevisedPrompt))
	}
	imageRequestsTotal.WithLabelValues("generate", "success").Inc()
	return resp.Data[0].URL, nil
}

// httpImageFetcher скачивает изображение обычным GET.
type httpImageFetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPImageFetcher создает ImageFetcher с таймаутом на запрос.
func NewHTTPImageFetcher(cfg config.ImageConfig, logger *zap.Logger) ImageFetcher {
	return &httpImageFetcher{
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logger: logger.Named("image_fetcher"),
	}
}

// Fetch реализует ImageFetcher.
func (f *httpImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrImageFetchFailed, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		imageRequestsTotal.WithLabelValues("fetch", "error").Inc()
		return nil, fmt.Errorf("%w: http request failed: %v", ErrImageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		imageRequestsTotal.WithLabelValues("fetch", "error_status").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		f.logger.Warn("Image fetch returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", snippet))
		return nil, fmt.Errorf("%w: status %d", ErrImageFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		imageRequestsTotal.WithLabelValues("fetch", "error_read").Inc()
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrImageFetchFailed, err)
	}
	if len(data) == 0 {
		imageRequestsTotal.WithLabelValues("fetch", "error_empty").Inc()
		return nil, fmt.Errorf("%w: empty body", ErrImageFetchFailed)
	}
	imageRequestsTotal.WithLabelValues("fetch", "success").Inc()
	return data, nil
}
