package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	dialTimeout    = 10 * time.Second
)

var (
	ErrConnect          = errors.New("failed to connect to server")
	ErrConnectionClosed = errors.New("connection to server closed")
)

type received struct {
	msg *protocol.Message
	err error
}

// Conn is the client end of the relay websocket. Writes are serialised; a reader
// goroutine feeds Receive so callers can cancel a pending read.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	recv    chan received
	done    chan struct{}

	closeOnce sync.Once
}

func Dial(ctx context.Context, url string, logger *slog.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	c := &Conn{
		ws:     ws,
		logger: logger,
		recv:   make(chan received, 16),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	go c.keepalive()
	return c, nil
}

func (c *Conn) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next server message, or an error once the connection is gone.
func (c *Conn) Receive(ctx context.Context) (*protocol.Message, error) {
	select {
	case r, ok := <-c.recv:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		close(c.done)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.recv)

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case c.recv <- received{err: err}:
			case <-c.done:
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("ignoring undecodable server message", "error", err)
			continue
		}
		select {
		case c.recv <- received{msg: msg}:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
