package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"novel-game/internal/delivery/websocket"
	"novel-game/internal/mocks"
	"novel-game/internal/model"
)

func connect(t *testing.T, m *websocket.WebSocketManager, controller websocket.SessionController) *gorillaws.Conn {
	t.Helper()
	server := httptest.NewServer(m.Handler(controller))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func newManager(t *testing.T) *websocket.WebSocketManager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := websocket.NewWebSocketManager(nil, zap.NewNop())
	m.Start(ctx)
	return m
}

func TestWebSocketManager_BroadcastsEventsInOrder(t *testing.T) {
	m := newManager(t)
	conn := connect(t, m, mocks.NewMockSessionController(t))

	sent := []model.UIEvent{
		model.NarrativeAppend("Intro. ", false),
		model.ChoiceSlotAppend(1, "🥒Go right", false),
		model.ImageUpdated([]byte{0x89, 'P', 'N', 'G'}),
		model.SessionClosed(),
	}
	for _, e := range sent {
		m.Publish(e)
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for _, want := range sent {
		var got model.UIEvent
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got)
	}
}

func TestWebSocketManager_DispatchesCommands(t *testing.T) {
	controller := mocks.NewMockSessionController(t)
	controller.On("SubmitChoice", 2).Return(true).Once()
	controller.On("SubmitChoice", 0).Return(false).Once()
	controller.On("Retry").Return(model.ErrNothingToRetry).Once()
	closed := make(chan struct{})
	controller.On("Close", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(closed) }).Once()

	m := newManager(t)
	conn := connect(t, m, controller)

	for _, msg := range []string{
		`{"action":"choice","slot":2}`,
		`{"action":"choice","slot":0}`,
		`{"action":"retry"}`,
		`{"action":"dance"}`,
		"not json",
		`{"action":"close"}`,
	} {
		require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(msg)))
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close command was not dispatched")
	}
}

func TestWebSocketManager_ChoiceWithoutSlotIgnored(t *testing.T) {
	// Любой вызов SubmitChoice провалит тест: ожиданий для него нет
	controller := mocks.NewMockSessionController(t)
	closed := make(chan struct{})
	controller.On("Close", mock.Anything).Return(nil).Run(func(mock.Arguments) { close(closed) }).Once()

	m := newManager(t)
	conn := connect(t, m, controller)

	slot := 1
	withSlot, err := json.Marshal(websocket.Command{Action: websocket.ActionClose, Slot: &slot})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"action":"choice"}`)))
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"action":"choice","slot":null}`)))
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, withSlot))

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close command was not dispatched")
	}
	controller.AssertNotCalled(t, "SubmitChoice", mock.Anything)
}

func TestWebSocketManager_UnregistersOnDisconnect(t *testing.T) {
	m := newManager(t)
	conn := connect(t, m, mocks.NewMockSessionController(t))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return m.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketManager_RejectsForeignOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := websocket.NewWebSocketManager([]string{"http://localhost:3000"}, zap.NewNop())
	m.Start(ctx)

	server := httptest.NewServer(m.Handler(mocks.NewMockSessionController(t)))
	defer server.Close()

	header := http.Header{"Origin": {"http://evil.example"}}
	_, resp, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
