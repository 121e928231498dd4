// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielhkuo/opinion-sim/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(opts)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv
}

// dial connects a client and returns it with the session id the server assigned
func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	var hello models.ConnectedMessage
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, models.MessageConnected, hello.Type)
	require.NotEmpty(t, hello.SessionID)

	return ws, hello.SessionID
}

func readStep(t *testing.T, ws *websocket.Conn) models.StepMessage {
	t.Helper()
	var msg models.StepMessage
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, models.MessageAnalysisStep, msg.Type)
	return msg
}

func step(typ string) models.AnalysisStep {
	return models.AnalysisStep{Type: typ, Message: typ, Timestamp: time.Now()}
}

func subscribedTo(h *Hub, pollID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.conns {
		c.mu.Lock()
		if c.pollID == pollID {
			n++
		}
		c.mu.Unlock()
	}
	return n
}

func TestHub_RoutesBySession(t *testing.T) {
	h, srv := startHub(t, Options{})

	alice, aliceSession := dial(t, srv)
	bob, bobSession := dial(t, srv)
	require.NotEqual(t, aliceSession, bobSession)
	require.Equal(t, 2, h.Subscribers())

	h.Broadcast(Event{SessionID: bobSession, Step: step(models.StepPlanning)})
	h.Broadcast(Event{SessionID: aliceSession, Step: step(models.StepQuestions)})

	// Alice never sees Bob's planning step; her first event is her own
	assert.Equal(t, models.StepQuestions, readStep(t, alice).Step.Type)
	assert.Equal(t, models.StepPlanning, readStep(t, bob).Step.Type)
}

func TestHub_StepsArriveInOrder(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, session := dial(t, srv)

	order := []string{models.StepPlanning, models.StepQuestions, models.StepPersonas, models.StepComplete}
	for _, typ := range order {
		h.Broadcast(Event{SessionID: session, Step: step(typ)})
	}

	for _, want := range order {
		msg := readStep(t, ws)
		assert.Equal(t, want, msg.Step.Type)
		assert.Equal(t, 0, msg.PollID)
	}
}

func TestHub_RoutesByPollSubscription(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, _ := dial(t, srv)

	require.NoError(t, ws.WriteJSON(models.InboundMessage{Type: models.MessageSubscribe, PollID: 7}))
	require.Eventually(t, func() bool { return subscribedTo(h, 7) == 1 }, 5*time.Second, 10*time.Millisecond)

	h.Broadcast(Event{PollID: 3, Step: step(models.StepPlanning)})
	h.Broadcast(Event{PollID: 7, Step: step(models.StepComplete)})

	msg := readStep(t, ws)
	assert.Equal(t, 7, msg.PollID)
	assert.Equal(t, models.StepComplete, msg.Step.Type)
}

func TestHub_SubscribeAdoptsSession(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, _ := dial(t, srv)

	const session = "0d6c7f9e-3f6a-4c1e-9a55-6f0a2f0c9b11"
	require.NoError(t, ws.WriteJSON(models.InboundMessage{Type: models.MessageSubscribe, SessionID: session}))
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.conns {
			c.mu.Lock()
			ok := c.sessionID == session
			c.mu.Unlock()
			if ok {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	h.Broadcast(Event{SessionID: session, Step: step(models.StepPersonas)})
	assert.Equal(t, models.StepPersonas, readStep(t, ws).Step.Type)
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	h, srv := startHub(t, Options{BroadcastAll: true})

	h.Broadcast(Event{Step: step(models.StepPlanning)})

	ws, _ := dial(t, srv)
	h.Broadcast(Event{Step: step(models.StepQuestions)})

	assert.Equal(t, models.StepQuestions, readStep(t, ws).Step.Type)
}

func TestHub_BroadcastAll(t *testing.T) {
	h, srv := startHub(t, Options{BroadcastAll: true})
	a, _ := dial(t, srv)
	b, _ := dial(t, srv)

	h.Broadcast(Event{PollID: 42, Step: step(models.StepComplete)})

	assert.Equal(t, 42, readStep(t, a).PollID)
	assert.Equal(t, 42, readStep(t, b).PollID)
}

func TestHub_InvalidMessagesKeepConnection(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, session := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "shout"}))

	h.Broadcast(Event{SessionID: session, Step: step(models.StepPlanning)})
	assert.Equal(t, models.StepPlanning, readStep(t, ws).Step.Type)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, _ := dial(t, srv)
	require.Equal(t, 1, h.Subscribers())

	ws.Close()
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)

	// Broadcasting with nobody connected is a no-op
	h.Broadcast(Event{Step: step(models.StepPlanning)})
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h, srv := startHub(t, Options{})
	ws, _ := dial(t, srv)

	h.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

// A subscriber that stops reading loses events instead of blocking the broadcaster
func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub(Options{BroadcastAll: true})
	c := &conn{send: make(chan any, 1)}
	h.conns[c] = struct{}{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			h.Broadcast(Event{Step: step(models.StepPlanning)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked on a full subscriber")
	}
	assert.Len(t, c.send, 1)
}
