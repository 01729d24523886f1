package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"novel-game/internal/logger"
)

// Поддерживаемые реализации клиента генерации текста
const (
	AIClientOpenAI = "openai"
	AIClientOllama = "ollama"
)

// ServiceName - имя сервиса в логах и метриках
const ServiceName = "novel-game"

// Режимы построения промпта для картинки
const (
	ImagePromptModeStyle = "style"
	ImagePromptModeChat  = "chat"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv         string `env:"APP_ENV" env-default:"development"`
	Logger         logger.Config
	AI             AIConfig
	Image          ImageConfig
	Game           GameConfig
	Server         ServerConfig
	PushGatewayURL string `env:"PUSHGATEWAY_URL"` // Опционально: метрики сессии пушатся при завершении
}

// AIConfig - подключение к сервису генерации текста.
type AIConfig struct {
	ClientType string        `env:"AI_CLIENT_TYPE" env-default:"openai"`
	BaseURL    string        `env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model      string        `env:"AI_MODEL" env-default:"gpt-4"`
	Timeout    time.Duration `env:"AI_TIMEOUT" env-default:"120s"`
	// Если пусто, ключ читается из /run/secrets/ai_api_key
	APIKey string `env:"AI_API_KEY"`
}

// ImageConfig - генерация изображений.
type ImageConfig struct {
	Model        string        `env:"IMAGE_MODEL" env-default:"dall-e-3"`
	Size         string        `env:"IMAGE_SIZE" env-default:"1024x1024"`
	Quality      string        `env:"IMAGE_QUALITY" env-default:"standard"`
	RetryLimit   int           `env:"IMAGE_RETRY_LIMIT" env-default:"3"`
	RetryDelay   time.Duration `env:"IMAGE_RETRY_DELAY" env-default:"1s"`
	FetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" env-default:"60s"`
	PromptMode   string        `env:"IMAGE_PROMPT_MODE" env-default:"style"`
	BaseURL      string        `env:"IMAGE_BASE_URL" env-default:"https://api.openai.com/v1"`
	// Если пусто, используется ключ сервиса текста
	APIKey string `env:"IMAGE_API_KEY"`
}

// GameConfig - параметры игрового цикла.
type GameConfig struct {
	ContentPath            string        `env:"GAME_CONTENT_PATH" env-default:"configs/pete_game.yaml"`
	TranscriptPath         string        `env:"GAME_TRANSCRIPT_PATH" env-default:"messages.txt"`
	MaxTurns               int           `env:"GAME_MAX_TURNS" env-default:"5"`
	RandomEventProbability float64       `env:"GAME_RANDOM_EVENT_PROBABILITY" env-default:"0.3"`
	PollInterval           time.Duration `env:"GAME_POLL_INTERVAL" env-default:"1s"`
	CloseTimeout           time.Duration `env:"GAME_CLOSE_TIMEOUT" env-default:"5s"`
	SystemPrompt           string        `env:"GAME_SYSTEM_PROMPT" env-default:"You are a helpful assistant and master storyteller, you craft stories that are engaging and deeply meaningful."`
}

// ServerConfig - HTTP/WebSocket поверхность для UI.
type ServerConfig struct {
	Port           string   `env:"SERVER_PORT" env-default:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// Load загружает конфигурацию из переменных окружения и .env файла.
func Load() (*Config, error) {
	// .env может отсутствовать, это не ошибка
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if cfg.AI.APIKey == "" && strings.EqualFold(cfg.AI.ClientType, AIClientOpenAI) {
		key, err := ReadSecret("ai_api_key")
		if err != nil {
			return nil, fmt.Errorf("AI_API_KEY not set and %w", err)
		}
		cfg.AI.APIKey = key
	}

	cfg.Logger.Development = cfg.AppEnv == "development"
	cfg.Logger.Service = ServiceName

	if cfg.Image.APIKey == "" {
		cfg.Image.APIKey = cfg.AI.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadGame читает только параметры игры. Нужен командам, которым
// не требуются ключи сервисов генерации.
func LoadGame() (*GameConfig, error) {
	_ = godotenv.Load()

	var cfg GameConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading game configuration: %w", err)
	}
	return &cfg, nil
}

// ImageAIConfig - подключение к OpenAI Images API. Сервис текста может
// быть Ollama, поэтому адрес и ключ картинок настраиваются отдельно.
func (c *Config) ImageAIConfig() AIConfig {
	return AIConfig{
		ClientType: AIClientOpenAI,
		BaseURL:    c.Image.BaseURL,
		Model:      c.Image.Model,
		Timeout:    c.AI.Timeout,
		APIKey:     c.Image.APIKey,
	}
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.AI.ClientType) {
	case AIClientOpenAI, AIClientOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown AI_CLIENT_TYPE '%s'", c.AI.ClientType))
	}
	switch strings.ToLower(c.Image.PromptMode) {
	case ImagePromptModeStyle, ImagePromptModeChat:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_PROMPT_MODE '%s'", c.Image.PromptMode))
	}
	if c.Image.RetryLimit < 1 {
		errs = append(errs, fmt.Errorf("IMAGE_RETRY_LIMIT must be >= 1, got %d", c.Image.RetryLimit))
	}
	if c.Game.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("GAME_MAX_TURNS must be >= 1, got %d", c.Game.MaxTurns))
	}
	if c.Game.RandomEventProbability < 0 || c.Game.RandomEventProbability > 1 {
		errs = append(errs, fmt.Errorf("GAME_RANDOM_EVENT_PROBABILITY must be in [0,1], got %v", c.Game.RandomEventProbability))
	}
	if c.Game.PollInterval <= 0 {
		errs = append(errs, errors.New("GAME_POLL_INTERVAL must be positive"))
	}
	if c.Game.CloseTimeout <= 0 {
		errs = append(errs, errors.New("GAME_CLOSE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
