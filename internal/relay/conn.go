package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait             = 10 * time.Second
	pongWait              = 60 * time.Second
	pingPeriod            = (pongWait * 9) / 10
	defaultMaxMessageSize = 4 * 1024 * 1024
	sendBuffer            = 32
	incomingBuffer        = 16
)

var ErrConnClosed = errors.New("connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type frame struct {
	kind int
	data []byte
}

type outbound struct {
	data      []byte
	closeCode int
	reason    string
}

// Conn owns one websocket. A single write pump serialises every outgoing frame,
// so frames leave in the order Send was called.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	send     chan outbound
	incoming chan frame
	readErr  error
	done     chan struct{}

	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, maxMessageSize int64, logger *slog.Logger) *Conn {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	ws.SetReadLimit(maxMessageSize)
	return &Conn{
		ws:       ws,
		logger:   logger,
		send:     make(chan outbound, sendBuffer),
		incoming: make(chan frame, incomingBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Conn) Start(ctx context.Context) {
	go c.writePump(ctx)
	go c.readPump()
}

// Incoming is closed when the peer goes away or the read fails; ReadErr then holds the cause.
func (c *Conn) Incoming() <-chan frame {
	return c.incoming
}

func (c *Conn) ReadErr() error {
	return c.readErr
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *Conn) Send(ctx context.Context, msg *protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, outbound{data: data})
}

// CloseWith queues a close frame behind any pending messages and waits for it to go out.
func (c *Conn) CloseWith(code int, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.enqueue(ctx, outbound{closeCode: code, reason: reason}); err != nil {
		c.Close()
		return
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		c.Close()
	}
}

func (c *Conn) enqueue(ctx context.Context, out outbound) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- out:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer close(c.incoming)

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.incoming <- frame{kind: kind, data: data}:
		case <-c.done:
			c.readErr = ErrConnClosed
			return
		}
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case out := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if out.closeCode != 0 {
				msg := websocket.FormatCloseMessage(out.closeCode, out.reason)
				if err := c.ws.WriteMessage(websocket.CloseMessage, msg); err != nil {
					c.logger.Debug("close frame write failed", "error", err)
				}
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, out.data); err != nil {
				c.logger.Warn("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
