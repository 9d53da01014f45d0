package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// cdpMessage 为 DevTools 协议线格式（请求、响应与事件共用）。
type cdpMessage struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *cdpError       `json:"error,omitempty"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp: %s (%d)", e.Message, e.Code)
}

// cdpEvent 为异步协议事件。
type cdpEvent struct {
	Method string
	Params json.RawMessage
}

// cdpClient 是最小 DevTools 客户端：按 id 配对请求响应，
// 事件入带缓冲通道；溢出即丢弃（采集对丢帧容忍）。
type cdpClient struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpMessage

	events chan cdpEvent
	done   chan struct{}
}

// dialCDP 连接调试目标的 WebSocket 端点并启动读循环。
func dialCDP(ctx context.Context, wsURL string, log *zap.Logger) (*cdpClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cdp dial %s: %w", wsURL, err)
	}
	c := &cdpClient{
		conn:    conn,
		log:     log,
		pending: make(map[int64]chan cdpMessage),
		events:  make(chan cdpEvent, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *cdpClient) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.failPending(err)
			return
		}
		var msg cdpMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("cdp: malformed frame", zap.Error(err))
			continue
		}
		if msg.ID != 0 {
			c.mu.Lock()
			ch := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ch != nil {
				ch <- msg
			}
			continue
		}
		select {
		case c.events <- cdpEvent{Method: msg.Method, Params: msg.Params}:
		default:
			c.log.Debug("cdp: event dropped", zap.String("method", msg.Method))
		}
	}
}

func (c *cdpClient) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- cdpMessage{Error: &cdpError{Message: err.Error()}}
		delete(c.pending, id)
	}
}

// Call 发送一条命令并等待配对响应。
func (c *cdpClient) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("cdp %s: marshal params: %w", method, err)
		}
		raw = b
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan cdpMessage, 1)
	c.pending[id] = ch
	err := c.conn.WriteJSON(cdpMessage{ID: id, Method: method, Params: raw})
	c.mu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("cdp %s: write: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case msg := <-ch:
		if msg.Error != nil {
			return nil, fmt.Errorf("cdp %s: %w", method, msg.Error)
		}
		return msg.Result, nil
	}
}

// Events 返回事件通道（读循环关闭后不再投递）。
func (c *cdpClient) Events() <-chan cdpEvent { return c.events }

// Close 关闭连接并等待读循环退出。
func (c *cdpClient) Close() error {
	err := c.conn.Close()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
	}
	return err
}

// debugTarget 为 /json 列表中的单个调试目标。
type debugTarget struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// discoverTarget 轮询调试端口的 /json 列表，取第一个 page 目标。
func discoverTarget(ctx context.Context, port int) (string, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d/json", port)
	tk := time.NewTicker(200 * time.Millisecond)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-tk.C:
		}
		resp, err := http.Get(url)
		if err != nil {
			continue
		}
		var targets []debugTarget
		err = json.NewDecoder(resp.Body).Decode(&targets)
		resp.Body.Close()
		if err != nil {
			continue
		}
		for _, t := range targets {
			if t.Type == "page" && t.WebSocketDebuggerURL != "" {
				return t.WebSocketDebuggerURL, nil
			}
		}
	}
}
