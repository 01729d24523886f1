package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novel-game/internal/model"
)

// SessionAPI - операции игровой сессии для HTTP-поверхности UI.
type SessionAPI interface {
	SubmitChoice(index int) bool
	Retry() error
	Close(ctx context.Context) error
	Snapshot() model.SessionSnapshot
}

// ErrorResponse - стандартное тело ответа об ошибке.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChoiceResponse - результат клика. Отброшенный клик не ошибка.
type ChoiceResponse struct {
	Slot     int  `json:"slot"`
	Accepted bool `json:"accepted"`
}

// Handler представляет HTTP обработчик сессии
type Handler struct {
	session SessionAPI
	ws      http.Handler
	logger  *zap.Logger
}

// NewHandler создает обработчик. ws - обработчик апгрейда WebSocket.
func NewHandler(session SessionAPI, ws http.Handler, logger *zap.Logger) *Handler {
	return &Handler{session: session, ws: ws, logger: logger.Named("http")}
}

// RegisterRoutes регистрирует маршруты UI
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", gin.WrapH(h.ws))

	api := router.Group("/api")
	{
		api.GET("/session", h.GetSession)
		api.POST("/choice/:slot", h.SubmitChoice)
		api.POST("/retry", h.Retry)
		api.POST("/close", h.Close)
	}
}

// GetSession возвращает последний снимок состояния сессии
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// SubmitChoice передает клик по слоту
func (h *Handler) SubmitChoice(c *gin.Context) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "slot must be an integer"})
		return
	}
	if !(model.ChoiceEvent{Index: slot}).Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "slot out of range"})
		return
	}
	c.JSON(http.StatusOK, ChoiceResponse{Slot: slot, Accepted: h.session.SubmitChoice(slot)})
}

// Retry перезапускает упавший стрим текущего хода
func (h *Handler) Retry(c *gin.Context) {
	err := h.session.Retry()
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "retrying"})
	case errors.Is(err, model.ErrNothingToRetry):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrSessionClosed):
		c.AbortWithStatusJSON(http.StatusGone, ErrorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// Close завершает сессию и ждет выхода игрового цикла
func (h *Handler) Close(c *gin.Context) {
	if err := h.session.Close(c.Request.Context()); err != nil {
		h.logger.Warn("Session close did not complete", zap.Error(err))
		if errors.Is(err, model.ErrCloseTimeout) {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
