package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// pingFrame is the application-level keepalive the game channel answers
// with a pong frame
var pingFrame = []byte(`{"type":"ping"}`)

// Dialer opens a websocket connection to url
type Dialer func(ctx context.Context, url string) (*websocket.Conn, error)

// NewDialer returns a Dialer backed by a gorilla websocket.Dialer
func NewDialer(cfg Config) Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	return func(ctx context.Context, url string) (*websocket.Conn, error) {
		ws, resp, err := d.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
			}
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		return ws, nil
	}
}

// connection is one open websocket to the game endpoint
type connection struct {
	ws    *websocket.Conn
	cfg   Config
	clock clockwork.Clock
	done  chan struct{}

	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, cfg Config, clock clockwork.Clock) *connection {
	return &connection{
		ws:    ws,
		cfg:   cfg,
		clock: clock,
		done:  make(chan struct{}),
	}
}

// readLoop hands every frame to onMessage in arrival order and returns the
// error that ended the connection.
func (c *connection) readLoop(onMessage func([]byte)) error {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		c.extendReadDeadline()

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		onMessage(data)
	}
}

func (c *connection) extendReadDeadline() {
	if c.cfg.ReadTimeout <= 0 {
		return
	}
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
}

// keepalive pings the server until the connection is closed, both with a
// protocol ping and with a ping frame. It is the only writer of data frames.
// A failed ping closes the socket so the read loop observes the drop.
func (c *connection) keepalive() {
	if c.cfg.PingInterval <= 0 {
		return
	}

	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.Chan():
			if err := c.ping(); err != nil {
				log.Warn().Err(err).Msg("live keepalive ping failed")
				c.ws.Close()
				return
			}
		}
	}
}

func (c *connection) ping() error {
	// socket deadlines are wall-clock time
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, pingFrame)
}

// close sends a normal close frame and releases the socket without blocking
// the caller.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		go func() {
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
			c.ws.Close()
		}()
	})
}
