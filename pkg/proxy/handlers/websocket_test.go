package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"yiyi-hq/gateway/internal/chattest"
	"yiyi-hq/gateway/pkg/chat"
	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/providerfactory"
	"yiyi-hq/gateway/pkg/providers"
	"yiyi-hq/gateway/pkg/session"
	"yiyi-hq/gateway/pkg/telemetry/metrics"
)

type relayFixture struct {
	cfg     *config.Config
	adapter *chattest.ScriptedAdapter
	store   *session.Store
	handler *WebSocketHandler
	server  *httptest.Server
}

func newRelayFixture(t *testing.T, primary string, fallbacks ...string) *relayFixture {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"a": {API: providers.APIOpenAICompletions},
		"b": {API: providers.APIOpenAICompletions},
	}
	cfg.Model = config.ModelConfig{Primary: primary, Fallbacks: fallbacks}

	f := &relayFixture{
		cfg:     cfg,
		adapter: chattest.NewScriptedAdapter(providers.APIOpenAICompletions),
		store:   session.NewStore(0),
	}
	collector := metrics.NewCollector("test", nil)
	service := chat.NewService(chat.ServiceOptions{
		Config:   func() *config.Config { return f.cfg },
		Registry: providerfactory.NewRegistry(f.adapter),
		Store:    f.store,
		Metrics:  collector,
	})
	f.handler = NewWebSocketHandler(service, WebSocketOptions{
		Config:  func() *config.Config { return f.cfg },
		Metrics: collector,
	})
	f.server = httptest.NewServer(f.handler)
	t.Cleanup(f.server.Close)
	return f
}

func (f *relayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame ServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return frame
}

// readUntilTerminal reads frames until chat.done or error.
func readUntilTerminal(t *testing.T, conn *websocket.Conn) []ServerFrame {
	t.Helper()

	var frames []ServerFrame
	for {
		frame := readFrame(t, conn)
		frames = append(frames, frame)
		if frame.Type == FrameChatDone || frame.Type == FrameError {
			return frames
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRelay_RoundTrip(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	f.adapter.On("m1", chattest.Script{
		Deltas: []string{"Hel", "lo"},
		Usage:  &providers.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	})
	conn := f.dial(t)

	if err := conn.WriteJSON(ClientFrame{ID: "x", Type: FrameChat, Content: "hello"}); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
	frames := readUntilTerminal(t, conn)

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d: %+v", len(frames), frames)
	}
	for _, frame := range frames {
		if frame.ID != "x" {
			t.Errorf("expected id %q, got %q", "x", frame.ID)
		}
	}
	if frames[0].Type != FrameChatDelta || frames[0].Content != "Hel" {
		t.Errorf("unexpected first frame %+v", frames[0])
	}
	done := frames[2]
	if done.Type != FrameChatDone {
		t.Errorf("expected %q, got %q", FrameChatDone, done.Type)
	}
	if done.Usage == nil || done.Usage.TotalTokens != 3 {
		t.Errorf("expected usage on done frame, got %+v", done.Usage)
	}
}

func TestRelay_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid json", input: "{not json"},
		{name: "array", input: `["chat"]`},
		{name: "numeric id", input: `{"id": 1, "type": "chat", "content": "hi"}`},
		{name: "wrong type", input: `{"id": "x", "type": "ping", "content": "hi"}`},
		{name: "missing content", input: `{"id": "x", "type": "chat"}`},
		{name: "null content", input: `{"id": "x", "type": "chat", "content": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRelayFixture(t, "a/m1")
			f.adapter.On("m1", chattest.Succeed("ok"))
			conn := f.dial(t)

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.input)); err != nil {
				t.Fatalf("failed to write: %v", err)
			}
			frame := readFrame(t, conn)

			if frame.ID != UnknownRequestID || frame.Type != FrameError {
				t.Errorf("expected error frame tagged %q, got %+v", UnknownRequestID, frame)
			}
			if frame.Error == nil || frame.Error.Code != chat.CodeInvalidRequest {
				t.Errorf("expected INVALID_REQUEST, got %+v", frame.Error)
			}
			if n := f.store.Len(); n != 0 {
				t.Errorf("expected no session state, got %d sessions", n)
			}

			// the connection stays usable
			if err := conn.WriteJSON(ClientFrame{ID: "y", Type: FrameChat, Content: "hi"}); err != nil {
				t.Fatalf("failed to write frame: %v", err)
			}
			frames := readUntilTerminal(t, conn)
			if last := frames[len(frames)-1]; last.Type != FrameChatDone || last.ID != "y" {
				t.Errorf("expected chat.done for y, got %+v", last)
			}
		})
	}
}

func TestRelay_ConfigError(t *testing.T) {
	f := newRelayFixture(t, "")
	conn := f.dial(t)

	_ = conn.WriteJSON(ClientFrame{ID: "r1", Type: FrameChat, Content: "hi"})
	frame := readFrame(t, conn)

	if frame.ID != "r1" || frame.Type != FrameError {
		t.Fatalf("expected error frame for r1, got %+v", frame)
	}
	if frame.Error.Code != chat.CodeConfigError {
		t.Errorf("expected code %q, got %q", chat.CodeConfigError, frame.Error.Code)
	}
}

func TestRelay_ModelError(t *testing.T) {
	f := newRelayFixture(t, "a/m1", "b/m2")
	f.adapter.On("m1", chattest.Fail("first"))
	f.adapter.On("m2", chattest.Fail("upstream unavailable"))
	conn := f.dial(t)

	_ = conn.WriteJSON(ClientFrame{ID: "r1", Type: FrameChat, Content: "hi"})
	frames := readUntilTerminal(t, conn)

	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %+v", frames)
	}
	if frames[0].Error.Code != chat.CodeModelError || frames[0].Error.Message != "upstream unavailable" {
		t.Errorf("unexpected error payload %+v", frames[0].Error)
	}
}

func TestRelay_CloseDeletesSession(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	f.adapter.On("m1", chattest.Succeed("ok"))
	conn := f.dial(t)

	_ = conn.WriteJSON(ClientFrame{ID: "r1", Type: FrameChat, Content: "hi"})
	readUntilTerminal(t, conn)

	if n := f.store.Len(); n != 1 {
		t.Fatalf("expected 1 live session, got %d", n)
	}

	conn.Close()
	waitFor(t, "session cleanup", func() bool {
		return f.store.Len() == 0 && f.handler.ActiveConnections() == 0
	})
}

func TestRelay_CloseCancelsInFlightTurn(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	hold := make(chan struct{})
	defer close(hold)
	f.adapter.On("m1", chattest.Script{Deltas: []string{"partial"}, Hold: hold})
	conn := f.dial(t)

	_ = conn.WriteJSON(ClientFrame{ID: "r1", Type: FrameChat, Content: "hi"})
	if frame := readFrame(t, conn); frame.Type != FrameChatDelta {
		t.Fatalf("expected a delta, got %+v", frame)
	}

	conn.Close()
	waitFor(t, "connection cleanup", func() bool {
		return f.handler.ActiveConnections() == 0
	})
	if n := f.store.Len(); n != 0 {
		t.Errorf("expected session to be deleted, got %d sessions", n)
	}
}

func TestRelay_ConcurrentRequests(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	f.adapter.On("m1", chattest.Succeed("a", "b"))
	conn := f.dial(t)

	_ = conn.WriteJSON(ClientFrame{ID: "r1", Type: FrameChat, Content: "one"})
	_ = conn.WriteJSON(ClientFrame{ID: "r2", Type: FrameChat, Content: "two"})

	done := map[string]bool{}
	for len(done) < 2 {
		frame := readFrame(t, conn)
		if frame.Type == FrameChatDone {
			done[frame.ID] = true
		}
	}
	if !done["r1"] || !done["r2"] {
		t.Errorf("expected both requests to finish, got %v", done)
	}
}

func TestRelay_FrameRateLimit(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	f.cfg.Gateway.FramesPerSecond = 0.001
	f.cfg.Gateway.FrameBurst = 2
	f.adapter.On("m1", chattest.Script{Deltas: []string{"ok"}})
	conn := f.dial(t)

	// malformed frames are answered without spending the allowance
	_ = conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
	if frame := readFrame(t, conn); frame.ID != UnknownRequestID || !strings.HasPrefix(frame.Error.Message, "invalid JSON") {
		t.Fatalf("expected invalid JSON error under %q, got %+v", UnknownRequestID, frame)
	}

	ids := []string{"r1", "r2", "r3", "r4", "r5"}
	for _, id := range ids {
		if err := conn.WriteJSON(ClientFrame{ID: id, Type: FrameChat, Content: "hi"}); err != nil {
			t.Fatalf("failed to write frame: %v", err)
		}
	}

	terminal := make(map[string]ServerFrame)
	for len(terminal) < len(ids) {
		frame := readFrame(t, conn)
		if frame.ID == UnknownRequestID {
			t.Fatalf("unexpected frame under %q: %+v", UnknownRequestID, frame)
		}
		if frame.Type != FrameChatDone && frame.Type != FrameError {
			continue
		}
		if _, dup := terminal[frame.ID]; dup {
			t.Fatalf("expected one terminal frame for %q, got a second: %+v", frame.ID, frame)
		}
		terminal[frame.ID] = frame
	}

	var done, rejected int
	for _, id := range ids {
		frame, ok := terminal[id]
		if !ok {
			t.Errorf("expected a terminal frame for %q", id)
			continue
		}
		switch frame.Type {
		case FrameChatDone:
			done++
		case FrameError:
			rejected++
			if frame.Error.Code != chat.CodeInvalidRequest || !strings.Contains(frame.Error.Message, "too many frames") {
				t.Errorf("unexpected rejection for %q: %+v", id, frame.Error)
			}
		}
	}
	if done != 2 || rejected != 3 {
		t.Errorf("expected 2 completed and 3 rejected, got %d and %d", done, rejected)
	}
}

func TestRelay_Shutdown(t *testing.T) {
	f := newRelayFixture(t, "a/m1")
	conn := f.dial(t)
	waitFor(t, "connection registration", func() bool { return f.handler.ActiveConnections() == 1 })

	readErr := make(chan error, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err := conn.ReadMessage()
		readErr <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.handler.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	if err := <-readErr; !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
	if n := f.handler.ActiveConnections(); n != 0 {
		t.Errorf("expected no active connections, got %d", n)
	}
}
