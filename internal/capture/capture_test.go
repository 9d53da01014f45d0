package capture

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// fakeCDP 起一个回应 Runtime.evaluate 的协议端点。
func fakeCDP(t *testing.T, handle func(conn *websocket.Conn, msg cdpMessage)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg cdpMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			handle(conn, msg)
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// TestCDPCallRoundTrip 请求按 id 配对响应
func TestCDPCallRoundTrip(t *testing.T) {
	srv := fakeCDP(t, func(conn *websocket.Conn, msg cdpMessage) {
		res, _ := json.Marshal(map[string]any{"result": map[string]any{"value": true}})
		_ = conn.WriteJSON(cdpMessage{ID: msg.ID, Result: res})
	})
	defer srv.Close()

	c, err := dialCDP(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ok, err := evalBool(context.Background(), c, "true")
	if err != nil || !ok {
		t.Fatalf("eval: ok=%v err=%v", ok, err)
	}
}

// TestCDPCallError 协议错误透传
func TestCDPCallError(t *testing.T) {
	srv := fakeCDP(t, func(conn *websocket.Conn, msg cdpMessage) {
		_ = conn.WriteJSON(cdpMessage{ID: msg.ID, Error: &cdpError{Code: -32000, Message: "no such frame"}})
	})
	defer srv.Close()

	c, err := dialCDP(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Call(context.Background(), "Page.navigate", nil); err == nil || !strings.Contains(err.Error(), "no such frame") {
		t.Fatalf("expect protocol error, got %v", err)
	}
}

// TestCDPEvents 无 id 消息按事件投递
func TestCDPEvents(t *testing.T) {
	srv := fakeCDP(t, func(conn *websocket.Conn, msg cdpMessage) {
		params, _ := json.Marshal(map[string]any{"data": "aGk=", "sessionId": 1})
		_ = conn.WriteJSON(cdpMessage{Method: "Page.screencastFrame", Params: params})
		res, _ := json.Marshal(map[string]any{})
		_ = conn.WriteJSON(cdpMessage{ID: msg.ID, Result: res})
	})
	defer srv.Close()

	c, err := dialCDP(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Call(context.Background(), "Page.enable", nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	select {
	case ev := <-c.Events():
		if ev.Method != "Page.screencastFrame" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}
}

// TestDiscoverTarget 从 /json 列表取 page 目标
func TestDiscoverTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]debugTarget{
			{Type: "background_page", WebSocketDebuggerURL: "ws://x/bg"},
			{Type: "page", URL: "about:blank", WebSocketDebuggerURL: "ws://x/page"},
		})
	}))
	defer srv.Close()

	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got, derr := discoverTarget(ctx, port)
	if derr != nil || got != "ws://x/page" {
		t.Fatalf("discover: %q err=%v", got, derr)
	}
}

// TestDiscoverTargetTimeout 无目标时随上下文超时
func TestDiscoverTargetTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := discoverTarget(ctx, 1); err == nil {
		t.Fatalf("expect timeout")
	}
}

// TestPayloadWire 载荷字段与渲染面约定一致
func TestPayloadWire(t *testing.T) {
	b, err := json.Marshal(Payload{VideoURL: "http://h/v.mp4", Duration: 12.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"videoUrl"`, `"srtData"`, `"htmlContent"`, `"layoutConfig"`, `"duration"`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("payload missing %s: %s", key, b)
		}
	}
}

// TestFreePort 端口可用且各不相同概率高
func TestFreePort(t *testing.T) {
	p, err := freePort()
	if err != nil || p <= 0 {
		t.Fatalf("freePort: %d err=%v", p, err)
	}
}
