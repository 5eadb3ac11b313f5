package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/orchestrator"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchRecord struct {
	sessionID string
	userID    string
	text      string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchRecord
	result orchestrator.Result
}

func (d *fakeDispatcher) dispatch(_ context.Context, sessionID, userID, text string) orchestrator.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchRecord{sessionID: sessionID, userID: userID, text: text})
	return d.result
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func testServer(t *testing.T, secret string) (*Server, *orchestrator.ProgressBus, *fakeDispatcher, *httptest.Server) {
	t.Helper()

	bus := orchestrator.NewProgressBus(zerolog.Nop())
	dispatcher := &fakeDispatcher{result: orchestrator.Result{SessionID: "s1", Content: "hello"}}

	s, err := NewServer(Config{
		Port:         1,
		SharedSecret: secret,
		Bus:          bus,
		Dispatcher:   dispatcher.dispatch,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return s, bus, dispatcher, srv
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()

	var frame Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestNewServer(t *testing.T) {
	bus := orchestrator.NewProgressBus(zerolog.Nop())
	dispatcher := &fakeDispatcher{}

	t.Run("should reject invalid port", func(t *testing.T) {
		_, err := NewServer(Config{Port: 0, Bus: bus, Dispatcher: dispatcher.dispatch})
		assert.Error(t, err)
	})

	t.Run("should reject missing bus", func(t *testing.T) {
		_, err := NewServer(Config{Port: 1, Dispatcher: dispatcher.dispatch})
		assert.Error(t, err)
	})

	t.Run("should reject missing dispatcher", func(t *testing.T) {
		_, err := NewServer(Config{Port: 1, Bus: bus})
		assert.Error(t, err)
	})
}

func TestSubscribeForwardsProgressEvents(t *testing.T) {
	_, bus, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
	sub := readFrame(t, conn)
	require.Equal(t, FrameSubscribed, sub.Type)
	require.Equal(t, "s1", sub.SessionID)

	// Wait for the bus registration made by the read loop goroutine
	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	bus.Publish(orchestrator.Event{Type: orchestrator.EventStep, SessionID: "s1"})

	frame := readFrame(t, conn)
	assert.Equal(t, FrameEvent, frame.Type)
	assert.Equal(t, "s1", frame.SessionID)
	assert.NotZero(t, frame.Timestamp)
}

func TestSubscribeIgnoresOtherSessions(t *testing.T) {
	_, bus, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
	require.Equal(t, FrameSubscribed, readFrame(t, conn).Type)
	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	bus.Publish(orchestrator.Event{Type: orchestrator.EventStep, SessionID: "other"})
	bus.Publish(orchestrator.Event{Type: orchestrator.EventDone, SessionID: "s1"})

	// Only the s1 event arrives
	frame := readFrame(t, conn)
	assert.Equal(t, "s1", frame.SessionID)
}

func TestResubscribeMovesListener(t *testing.T) {
	_, bus, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
	require.Equal(t, FrameSubscribed, readFrame(t, conn).Type)
	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s2"}))
	require.Equal(t, FrameSubscribed, readFrame(t, conn).Type)

	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 0 && bus.ListenerCount("s2") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeDropsListener(t *testing.T) {
	_, bus, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
	require.Equal(t, FrameSubscribed, readFrame(t, conn).Type)
	require.NoError(t, conn.WriteJSON(Command{Type: CmdUnsubscribe}))

	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatDispatchesAndReturnsResult(t *testing.T) {
	_, _, dispatcher, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdChat, SessionID: "s1", UserID: "u1", Text: "hi"}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameResult, frame.Type)
	assert.Equal(t, "s1", frame.SessionID)

	require.Equal(t, 1, dispatcher.callCount())
	dispatcher.mu.Lock()
	call := dispatcher.calls[0]
	dispatcher.mu.Unlock()
	assert.Equal(t, "s1", call.sessionID)
	assert.Equal(t, "u1", call.userID)
	assert.Equal(t, "hi", call.text)
}

func TestChatRequiresSessionAndText(t *testing.T) {
	_, _, dispatcher, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdChat, SessionID: "s1"}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, 0, dispatcher.callCount())
}

func TestUnknownCommandReturnsError(t *testing.T) {
	_, _, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: "bogus"}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Message, "unknown command")
}

func TestSharedSecretRequired(t *testing.T) {
	_, _, _, srv := testServer(t, "hunter2")

	t.Run("should reject a missing secret", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should accept the secret as a query parameter", func(t *testing.T) {
		conn := dialWS(t, srv, "/ws?secret=hunter2")
		require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
		assert.Equal(t, FrameSubscribed, readFrame(t, conn).Type)
	})

	t.Run("should accept the secret as a header", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		header := http.Header{"X-Forge-Secret": []string{"hunter2"}}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()
	})
}

func TestHealthz(t *testing.T) {
	_, _, _, srv := testServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDisconnectCleansUpClient(t *testing.T) {
	s, bus, _, srv := testServer(t, "")
	conn := dialWS(t, srv, "/ws")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSubscribe, SessionID: "s1"}))
	require.Equal(t, FrameSubscribed, readFrame(t, conn).Type)
	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return bus.ListenerCount("s1") == 0 && s.clients.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
