package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"hyper_monitor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	// the server drops connections idle for a minute
	wsPingEvery    = 50 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var errConnClosed = errors.New("websocket closed")

type wsResult struct {
	payload json.RawMessage
	err     error
}

// WSTransport sends info requests as "post" messages over one shared
// connection. Answers are routed back by request id. The connection is
// dialled on first use and again after it breaks.
type WSTransport struct {
	url       string
	dialer    *websocket.Dialer
	pingEvery time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	stop    chan struct{}
	pending map[uint64]chan wsResult

	writeMu sync.Mutex
	nextID  atomic.Uint64
}

func NewWSTransport(url string, timeout time.Duration) *WSTransport {
	return &WSTransport{
		url:       url,
		dialer:    &websocket.Dialer{HandshakeTimeout: timeout},
		pingEvery: wsPingEvery,
		pending:   make(map[uint64]chan wsResult),
	}
}

type wsPost struct {
	Method  string      `json:"method"`
	ID      uint64      `json:"id"`
	Request wsPostInner `json:"request"`
}

type wsPostInner struct {
	Type    string      `json:"type"`
	Payload InfoRequest `json:"payload"`
}

type wsFrame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsPostData struct {
	ID       uint64 `json:"id"`
	Response struct {
		Type    string          `json:"type"` // info | action | error
		Payload json.RawMessage `json:"payload"`
	} `json:"response"`
}

func (t *WSTransport) Info(ctx context.Context, r InfoRequest) (json.RawMessage, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	id := t.nextID.Add(1)
	ch := make(chan wsResult, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	defer t.forget(id)

	msg := wsPost{Method: "post", ID: id, Request: wsPostInner{Type: "info", Payload: r}}
	if err := t.write(conn, msg); err != nil {
		t.drop(conn, err)
		return nil, errors.Wrap(err, "ws write")
	}

	select {
	case res := <-ch:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "ws wait")
	}
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	t.drop(conn, errConnClosed)
	return nil
}

// connect returns the current connection or dials a new one. The dial runs
// outside t.mu; when two dials race the later one is closed.
func (t *WSTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ws dial")
	}

	t.mu.Lock()
	if t.conn != nil {
		current := t.conn
		t.mu.Unlock()
		_ = conn.Close()
		return current, nil
	}
	t.conn = conn
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	logger.Debug("[HL] websocket connected: %s", t.url)
	go t.readLoop(conn)
	go t.pingLoop(conn, stop)
	return conn, nil
}

func (t *WSTransport) write(conn *websocket.Conn, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	tk := time.NewTicker(t.pingEvery)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			if err := t.write(conn, map[string]string{"method": "ping"}); err != nil {
				t.drop(conn, err)
				return
			}
		}
	}
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.drop(conn, err)
			return
		}

		var frame wsFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil || frame.Channel != "post" {
			continue // pong, subscriptionResponse
		}
		var data wsPostData
		if err := sonic.Unmarshal(frame.Data, &data); err != nil {
			logger.Warn("[HL] bad post frame: %v", err)
			continue
		}
		t.resolve(data)
	}
}

func (t *WSTransport) resolve(data wsPostData) {
	t.mu.Lock()
	ch, ok := t.pending[data.ID]
	delete(t.pending, data.ID)
	t.mu.Unlock()
	if !ok {
		return
	}

	res := wsResult{}
	switch data.Response.Type {
	case "error":
		var text string
		if err := sonic.Unmarshal(data.Response.Payload, &text); err != nil {
			text = string(data.Response.Payload)
		}
		res.err = errors.Errorf("ws post error: %s", text)
	default:
		// info answers come as {"type": ..., "data": ...}
		var inner struct {
			Data json.RawMessage `json:"data"`
		}
		if err := sonic.Unmarshal(data.Response.Payload, &inner); err == nil && len(inner.Data) > 0 {
			res.payload = inner.Data
		} else {
			res.payload = data.Response.Payload
		}
	}
	ch <- res
}

func (t *WSTransport) forget(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// drop closes conn if it is still current and fails every waiting request.
func (t *WSTransport) drop(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	close(t.stop)
	waiting := t.pending
	t.pending = make(map[uint64]chan wsResult)
	t.mu.Unlock()

	_ = conn.Close()
	if !errors.Is(cause, errConnClosed) {
		logger.Warn("[HL] websocket dropped: %v", cause)
	}
	for _, ch := range waiting {
		ch <- wsResult{err: errors.Wrap(cause, "ws connection lost")}
	}
}
