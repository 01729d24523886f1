package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"novel-game/internal/config"
	"novel-game/internal/content"
	deliveryhttp "novel-game/internal/delivery/http"
	"novel-game/internal/delivery/websocket"
	"novel-game/internal/game"
	"novel-game/internal/logger"
	"novel-game/internal/model"
	"novel-game/internal/service"
	"novel-game/internal/worker"
)

const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run one game session and serve its UI surface over HTTP and WebSocket",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	doc, err := content.Load(cfg.Game.ContentPath)
	if err != nil {
		return err
	}
	setup := doc.NewSetup(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))

	session := model.NewSession(setup.Seed(cfg.Game.SystemPrompt), cfg.Game.MaxTurns)
	session.ImageStyle = setup.ImageStyle
	log.Info("Session created",
		zap.String("session_id", session.ID.String()),
		zap.String("objective", setup.Objective),
		zap.String("theme", setup.Theme),
		zap.String("writing_style", setup.WritingStyle),
		zap.String("image_style", setup.ImageStyle),
	)

	aiClient, err := service.NewAIClient(cfg.AI, log)
	if err != nil {
		return err
	}
	streams := worker.NewStreamWorker(aiClient, nil, log)
	images := newImageWorker(cfg, aiClient, setup.ImageStyle, log)

	manager := websocket.NewWebSocketManager(cfg.Server.AllowedOrigins, log)
	loop := game.NewLoop(session, streams, images, manager, game.Options{
		RandomEvents:           setup.RandomEvents,
		RandomEventProbability: cfg.Game.RandomEventProbability,
		PollInterval:           cfg.Game.PollInterval,
		CloseTimeout:           cfg.Game.CloseTimeout,
		TranscriptPath:         cfg.Game.TranscriptPath,
		Tokens:                 service.NewTokenCounter(cfg.AI.Model),
	}, log)

	// Менеджер живет дольше цикла, чтобы UI получил session_closed
	managerCtx, stopManager := context.WithCancel(context.Background())
	defer stopManager()
	manager.Start(managerCtx)

	handler := deliveryhttp.NewHandler(loop, manager.Handler(loop), log)
	router := deliveryhttp.NewRouter(handler, deliveryhttp.RouterConfig{
		Env:            cfg.AppEnv,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        true,
	}, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Info("Shutting down session...")
			if err := loop.Close(context.Background()); err != nil {
				log.Warn("Game loop did not exit in time", zap.Error(err))
			}
		case <-loop.Done():
			log.Info("Session closed by UI")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	pushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if pushErr := worker.PushMetrics(pushCtx, cfg.PushGatewayURL, session.ID.String()); pushErr != nil {
		log.Warn("Failed to push session metrics", zap.Error(pushErr))
	}

	snap := loop.Snapshot()
	log.Info("Server exiting",
		zap.Int("turn", snap.Turn),
		zap.Int("transcript_length", snap.TranscriptLength),
	)
	return err
}

// newImageWorker возвращает nil, если ключ для генерации картинок не задан.
func newImageWorker(cfg *config.Config, completer service.TextCompleter, style string, log *zap.Logger) *worker.ImageWorker {
	imageAI := cfg.ImageAIConfig()
	if imageAI.APIKey == "" {
		log.Warn("IMAGE_API_KEY not set, image generation disabled")
		return nil
	}

	var deriver service.PromptDeriver = service.StylePromptDeriver{Style: style}
	if strings.EqualFold(cfg.Image.PromptMode, config.ImagePromptModeChat) {
		deriver = service.ChatPromptDeriver{
			Completer: completer,
			Style:     style,
			Fallback:  deriver,
			Logger:    log.Named("image_prompt"),
		}
	}

	return worker.NewImageWorker(
		service.NewOpenAIImageGenerator(imageAI, cfg.Image, log),
		service.NewHTTPImageFetcher(cfg.Image, log),
		deriver,
		worker.ImageWorkerOptions{
			RetryLimit: cfg.Image.RetryLimit,
			RetryDelay: cfg.Image.RetryDelay,
		},
		log,
	)
}
