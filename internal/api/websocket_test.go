package api_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spacewar/internal/api"
	"spacewar/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// newWSServer starts a full server's router and hub without a listener
func newWSServer(t *testing.T, engine api.EngineInterface) (*httptest.Server, string) {
	t.Helper()
	srv := api.NewServer(engine, api.ServerConfig{
		RateLimit:         api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, CleanupInterval: time.Hour},
		BroadcastInterval: 10 * time.Millisecond,
	})
	go srv.Hub().Run()
	srv.Hub().StartBroadcastLoop(10 * time.Millisecond)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
	})
	return ts, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor polls until cond holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestWebSocketBroadcastJSON verifies text clients receive lifecycle and snapshot frames
func TestWebSocketBroadcastJSON(t *testing.T) {
	_, url := newWSServer(t, NewMockEngine())
	conn := dial(t, url)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	seen := map[string]bool{}
	for len(seen) < 2 {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if msgType != websocket.TextMessage {
			t.Fatalf("message type = %d, want text", msgType)
		}

		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		seen[env.Event] = true

		if env.Event == api.EventMatchState {
			var lc game.LifecycleSnapshot
			if err := json.Unmarshal(env.Data, &lc); err != nil {
				t.Fatalf("decode lifecycle: %v", err)
			}
			if lc.State != "starting" {
				t.Errorf("state = %q, want starting", lc.State)
			}
		}
	}
	if !seen[api.EventMatchState] || !seen[api.EventMatchSnapshot] {
		t.Errorf("events seen = %v", seen)
	}
}

// TestWebSocketBroadcastMsgpack verifies binary clients receive msgpack frames
func TestWebSocketBroadcastMsgpack(t *testing.T) {
	_, url := newWSServer(t, NewMockEngine())
	conn := dial(t, url+"?format=msgpack")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", msgType)
	}

	var env struct {
		Event string             `msgpack:"event"`
		Data  msgpack.RawMessage `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Event != api.EventMatchState && env.Event != api.EventMatchSnapshot {
		t.Errorf("unexpected event %q", env.Event)
	}
}

// TestWebSocketCommands verifies inbound key, ai and restart messages reach the engine
func TestWebSocketCommands(t *testing.T) {
	engine := NewMockEngine()
	engine.setState("gameover")
	_, url := newWSServer(t, engine)
	conn := dial(t, url)

	send := func(v interface{}) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(map[string]interface{}{"type": "key", "key": "A", "pressed": true})
	send(map[string]interface{}{"type": "key", "key": "A", "pressed": false})
	send(map[string]interface{}{"type": "key", "pressed": true}) // ignored
	send(map[string]interface{}{"type": "ai", "player": 1, "ai": true})
	send(map[string]interface{}{"type": "restart"})
	send(map[string]interface{}{"type": "bogus"})

	waitFor(t, "restart", func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.restarted == 1
	})

	down, up := engine.pressed()
	if len(down) != 1 || down[0] != "A" || len(up) != 1 || up[0] != "A" {
		t.Errorf("keys down=%v up=%v, want [A]/[A]", down, up)
	}
	if !engine.Lifecycle().Players[1].IsAI {
		t.Error("player 1 should be AI-controlled")
	}
}

// TestWebSocketRejectsForeignOrigin verifies browser origins are checked on upgrade
func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, url := newWSServer(t, NewMockEngine())

	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected upgrade to fail for a foreign origin")
	}
	if resp != nil && resp.StatusCode != 403 {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

// TestWebSocketClientCount verifies connects and disconnects are tracked
func TestWebSocketClientCount(t *testing.T) {
	engine := NewMockEngine()
	srv := api.NewServer(engine, api.ServerConfig{})
	go srv.Hub().Run()
	defer srv.Stop(context.Background())

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	a, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	b, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "two clients", func() bool { return srv.Hub().ClientCount() == 2 })

	a.Close()
	waitFor(t, "one client", func() bool { return srv.Hub().ClientCount() == 1 })
	b.Close()
	waitFor(t, "no clients", func() bool { return srv.Hub().ClientCount() == 0 })
}

func containsKey(keys []game.Key, key game.Key) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// TestWebSocketDisconnectReleasesKeys verifies keys held by a dropped client
// do not stay pressed
func TestWebSocketDisconnectReleasesKeys(t *testing.T) {
	engine := NewMockEngine()
	_, url := newWSServer(t, engine)
	conn := dial(t, url)

	for _, msg := range []map[string]interface{}{
		{"type": "key", "key": "W", "pressed": true},
		{"type": "key", "key": "D", "pressed": true},
		{"type": "key", "key": "D", "pressed": false},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitFor(t, "D released", func() bool {
		_, up := engine.pressed()
		return containsKey(up, "D")
	})

	conn.Close()
	waitFor(t, "W released on disconnect", func() bool {
		_, up := engine.pressed()
		return containsKey(up, "W")
	})

	_, up := engine.pressed()
	if len(up) != 2 {
		t.Errorf("keys up = %v, want [D W]", up)
	}
}

// TestWebSocketKeyReleaseBypassesRateLimit verifies a release sent after a
// flood of presses still reaches the engine
func TestWebSocketKeyReleaseBypassesRateLimit(t *testing.T) {
	engine := NewMockEngine()
	_, url := newWSServer(t, engine)
	conn := dial(t, url)

	press := map[string]interface{}{"type": "key", "key": "A", "pressed": true}
	for i := 0; i < 4*api.MaxWSMessagesPerSec; i++ {
		if err := conn.WriteJSON(press); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := conn.WriteJSON(map[string]interface{}{"type": "key", "key": "A", "pressed": false}); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, "A released", func() bool {
		_, up := engine.pressed()
		return containsKey(up, "A")
	})

	down, _ := engine.pressed()
	if len(down) >= 4*api.MaxWSMessagesPerSec {
		t.Errorf("all %d presses were accepted, the flood should be limited", len(down))
	}
}
