package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"novel-game/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
	eventBuffer    = 1024
)

// Входящие команды UI
const (
	ActionChoice = "choice"
	ActionClose  = "close"
	ActionRetry  = "retry"
)

// SessionController - операции сессии, доступные UI.
type SessionController interface {
	SubmitChoice(index int) bool
	Retry() error
	Close(ctx context.Context) error
}

// Command - входящее сообщение клиента. Slot обязателен для ActionChoice.
type Command struct {
	Action string `json:"action"`
	Slot   *int   `json:"slot,omitempty"`
}

// WebSocketManager управляет WebSocket-соединениями UI и рассылает им события сессии
type WebSocketManager struct {
	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.UIEvent
	overflow   chan struct{}
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// Client представляет WebSocket-клиента
type Client struct {
	ID         uuid.UUID
	Conn       *websocket.Conn
	Manager    *WebSocketManager
	Send       chan []byte
	controller SessionController
}

// NewWebSocketManager создает менеджер. allowedOrigins пустой или с "*"
// разрешает любой Origin.
func NewWebSocketManager(allowedOrigins []string, logger *zap.Logger) *WebSocketManager {
	m := &WebSocketManager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.UIEvent, eventBuffer),
		overflow:   make(chan struct{}, 1),
		done:       make(chan struct{}),
		logger:     logger.Named("websocket"),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 ||
				slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return m
}

// Start запускает WebSocketManager в отдельной горутине до отмены ctx
func (m *WebSocketManager) Start(ctx context.Context) {
	go m.run(ctx)
}

// run обрабатывает все операции WebSocketManager
func (m *WebSocketManager) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for id, client := range m.clients {
				close(client.Send)
				delete(m.clients, id)
			}
			m.mu.Unlock()
			return

		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()
			m.logger.Info("Client connected", zap.String("client_id", client.ID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client.ID]; ok {
				close(client.Send)
				delete(m.clients, client.ID)
				m.logger.Info("Client disconnected", zap.String("client_id", client.ID.String()))
			}
			m.mu.Unlock()

		case <-m.overflow:
			// Очередь теряла события: текущие клиенты видят неполную картину,
			// отключаем их, после переподключения UI берет состояние из /api/session
			m.mu.Lock()
			for id, client := range m.clients {
				close(client.Send)
				delete(m.clients, id)
			}
			m.mu.Unlock()
			m.logger.Warn("UI event queue overflowed, all clients disconnected")

		case event := <-m.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				m.logger.Error("Failed to marshal UI event", zap.String("type", string(event.Type)), zap.Error(err))
				continue
			}

			m.mu.Lock()
			for id, client := range m.clients {
				select {
				case client.Send <- data:
				default:
					// Медленный клиент, отключаем
					close(client.Send)
					delete(m.clients, id)
					m.logger.Warn("Client send buffer full, dropping client", zap.String("client_id", id.String()))
				}
			}
			m.mu.Unlock()
		}
	}
}

// Publish ставит событие в очередь рассылки. Не блокирует управляющий
// цикл игры. Если очередь переполнена, событие теряется, а все клиенты
// отключаются, чтобы ни один не продолжил работу с пропуском в потоке.
func (m *WebSocketManager) Publish(event model.UIEvent) {
	select {
	case m.broadcast <- event:
	default:
		m.logger.Warn("UI event queue full, event dropped", zap.String("type", string(event.Type)))
		select {
		case m.overflow <- struct{}{}:
		default:
		}
	}
}

// ClientCount возвращает число подключенных клиентов
func (m *WebSocketManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Handler обрабатывает новые WebSocket-соединения. Команды клиентов
// передаются в controller.
func (m *WebSocketManager) Handler(controller SessionController) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:         uuid.New(),
			Conn:       conn,
			Manager:    m,
			Send:       make(chan []byte, sendBuffer),
			controller: controller,
		}
		select {
		case m.register <- client:
		case <-m.done:
			conn.Close()
			return
		}

		go client.readPump()
		go client.writePump()
	})
}

// dispatch выполняет команду клиента
func (c *Client) dispatch(ctx context.Context, cmd Command) {
	log := c.Manager.logger.With(zap.String("client_id", c.ID.String()), zap.String("action", cmd.Action))
	switch cmd.Action {
	case ActionChoice:
		if cmd.Slot == nil {
			log.Debug("Choice without slot ignored")
			return
		}
		if !c.controller.SubmitChoice(*cmd.Slot) {
			log.Debug("Choice ignored", zap.Int("slot", *cmd.Slot))
		}
	case ActionRetry:
		if err := c.controller.Retry(); err != nil {
			log.Debug("Retry ignored", zap.Error(err))
		}
	case ActionClose:
		if err := c.controller.Close(ctx); err != nil {
			log.Warn("Session close did not complete", zap.Error(err))
		}
	default:
		log.Debug("Unknown command")
	}
}

// readPump обрабатывает входящие команды от клиента
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Manager.unregister <- c:
		case <-c.Manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.logger.Warn("WebSocket read error", zap.String("client_id", c.ID.String()), zap.Error(err))
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.Manager.logger.Debug("Malformed command", zap.String("client_id", c.ID.String()), zap.Error(err))
			continue
		}
		c.dispatch(context.Background(), cmd)
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт, отправляем сообщение о закрытии
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Одно событие - одно сообщение, клиент разбирает каждое как JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
