package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"novel-game/internal/model"
	"novel-game/internal/service"
)

// ErrImageRetriesExhausted - все попытки генерации изображения неудачны.
var ErrImageRetriesExhausted = errors.New("image generation retries exhausted")

// DefaultRetryLimit - количество попыток по умолчанию.
const DefaultRetryLimit = 3

// ImageResult - итог задачи генерации для игрового цикла.
type ImageResult struct {
	Job model.ImageJob
	Err error
}

// ImageWorkerOptions - параметры повторов.
type ImageWorkerOptions struct {
	RetryLimit int           // <= 0 означает DefaultRetryLimit
	RetryDelay time.Duration // Пауза между попытками
	Gate       *Gate         // nil означает DefaultImageGate
}

// ImageWorker выполняет генерацию и скачивание картинки с ограниченным числом попыток.
type ImageWorker struct {
	generator  service.ImageGenerator
	fetcher    service.ImageFetcher
	deriver    service.PromptDeriver
	gate       *Gate
	retryLimit int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewImageWorker создает воркер. deriver == nil означает StylePromptDeriver без стиля.
func NewImageWorker(
	generator service.ImageGenerator,
	fetcher service.ImageFetcher,
	deriver service.PromptDeriver,
	opts ImageWorkerOptions,
	logger *zap.Logger,
) *ImageWorker {
	if deriver == nil {
		deriver = service.StylePromptDeriver{}
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = DefaultRetryLimit
	}
	if opts.Gate == nil {
		opts.Gate = DefaultImageGate
	}
	return &ImageWorker{
		generator:  generator,
		fetcher:    fetcher,
		deriver:    deriver,
		gate:       opts.Gate,
		retryLimit: opts.RetryLimit,
		retryDelay: opts.RetryDelay,
		logger:     logger.Named("image_worker"),
	}
}

// RetryLimit возвращает максимальное число попыток.
func (w *ImageWorker) RetryLimit() int {
	return w.retryLimit
}

// Run выполняет задачу синхронно под блокировкой сервиса картинок.
//
// Каждая попытка - это новый промпт от PromptDeriver, запрос генерации и
// скачивание. Первое успешное скачивание завершает задачу. После retryLimit
// неудач возвращается ошибка, оборачивающая ErrImageRetriesExhausted и
// последнюю ошибку попытки. Отмена ctx не прерывает текущую попытку,
// но не дает начать следующую.
func (w *ImageWorker) Run(ctx context.Context, prompt string, history []string) (model.ImageJob, error) {
	job := model.ImageJob{Prompt: prompt}
	log := w.logger.With(
		zap.String("prompt_hash", uuid.NewSHA1(uuid.NameSpaceOID, []byte(prompt)).String()),
		zap.Int("retry_limit", w.retryLimit),
	)

	waitStart := time.Now()
	if err := w.gate.Acquire(ctx); err != nil {
		job.Err = err
		imageJobs.WithLabelValues("cancelled").Inc()
		return job, err
	}
	defer w.gate.Release()
	gateWait.WithLabelValues(w.gate.Name()).Observe(time.Since(waitStart).Seconds())

	startTime := time.Now()
	defer func() { imageJobDuration.Observe(time.Since(startTime).Seconds()) }()

	reqCtx := context.WithoutCancel(ctx)
	for attempt := 1; attempt <= w.retryLimit; attempt++ {
		if attempt > 1 {
			if err := w.pause(ctx); err != nil {
				job.Err = errors.Join(job.Err, err)
				imageJobs.WithLabelValues("cancelled").Inc()
				return job, job.Err
			}
		}
		job.Attempt = attempt

		data, err := w.attempt(reqCtx, &job, history)
		if err == nil {
			job.Result = data
			job.Err = nil
			imageAttempts.WithLabelValues("success").Inc()
			imageJobs.WithLabelValues("success").Inc()
			log.Info("Image generated", zap.Int("attempt", attempt), zap.Int("size_bytes", len(data)))
			return job, nil
		}

		job.Err = err
		imageAttempts.WithLabelValues("error").Inc()
		log.Warn("Image attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	imageJobs.WithLabelValues("exhausted").Inc()
	job.Err = fmt.Errorf("%w after %d attempts: %w", ErrImageRetriesExhausted, w.retryLimit, job.Err)
	log.Error("Image generation failed", zap.Error(job.Err))
	return job, job.Err
}

func (w *ImageWorker) attempt(ctx context.Context, job *model.ImageJob, history []string) ([]byte, error) {
	effective, err := w.deriver.Derive(ctx, job.Prompt, job.Attempt, history)
	if err != nil {
		return nil, fmt.Errorf("failed to derive image prompt: %w", err)
	}
	job.EffectivePrompt = effective

	url, err := w.generator.GenerateImage(ctx, effective)
	if err != nil {
		return nil, err
	}
	return w.fetcher.Fetch(ctx, url)
}

func (w *ImageWorker) pause(ctx context.Context) error {
	if w.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(w.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start запускает Run в отдельной горутине и отдает результат в out.
// После отмены ctx результат отбрасывается.
func (w *ImageWorker) Start(ctx context.Context, prompt string, history []string, out chan<- ImageResult) {
	historyCopy := append([]string(nil), history...)
	go func() {
		job, err := w.Run(ctx, prompt, historyCopy)
		deliver(ctx, out, ImageResult{Job: job, Err: err})
	}()
}
