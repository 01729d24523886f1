package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"novel-game/internal/delivery/http/middleware"
)

const defaultOrigin = "http://localhost:3000"

// RouterConfig - параметры HTTP-роутера.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	// Включает /metrics и метрики запросов. В тестах отключено,
	// чтобы не регистрировать коллекторы повторно.
	Metrics bool
}

// NewRouter собирает gin.Engine: логирование, recovery, CORS, health, маршруты UI.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{defaultOrigin}
		logger.Info("CORS allowed origins not set, allowing default", zap.String("origin", defaultOrigin))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	if cfg.Metrics {
		// Middleware должен стоять до маршрутов, иначе они останутся без метрик
		p := ginprometheus.NewPrometheus("gin")
		p.Use(router)
	}

	h.RegisterRoutes(router)
	return router
}
