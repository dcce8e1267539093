package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DialerConfig tunes the websocket transport underneath the session
// channel.
type DialerConfig struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
	// SendRate caps outbound messages per second; bursts of join/leave
	// intents are smoothed instead of hammering the service.
	SendRate  float64
	SendBurst int
}

func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendRate:     20,
		SendBurst:    40,
	}
}

// Dialer opens websocket session channels with the bearer credential
// attached.
type Dialer struct {
	cfg    DialerConfig
	tokens ports.TokenProvider
	logger *zap.SugaredLogger
}

func NewDialer(cfg DialerConfig, tokens ports.TokenProvider, logger *zap.SugaredLogger) *Dialer {
	return &Dialer{cfg: cfg, tokens: tokens, logger: logger}
}

func (d *Dialer) Dial(ctx context.Context, url string) (ports.Channel, error) {
	header := http.Header{}
	if d.tokens != nil {
		token, err := d.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake rejected with status %d", domain.ErrTokenExpired, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	ch := &wsChannel{
		conn:    conn,
		cfg:     d.cfg,
		events:  make(chan ports.ChannelEvent, 16),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(d.cfg.SendRate), d.cfg.SendBurst),
		logger:  d.logger,
	}
	go ch.readLoop()
	go ch.pingLoop()
	return ch, nil
}

// wsChannel adapts one gorilla websocket connection to the Channel
// port. The final event on Events is always ChannelClosed.
type wsChannel struct {
	conn    *websocket.Conn
	cfg     DialerConfig
	events  chan ports.ChannelEvent
	done    chan struct{}
	limiter *rate.Limiter
	logger  *zap.SugaredLogger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsChannel) Events() <-chan ports.ChannelEvent {
	return c.events
}

func (c *wsChannel) Send(ctx context.Context, v interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) readLoop() {
	defer close(c.events)

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			select {
			case c.events <- ports.ChannelEvent{Kind: ports.ChannelClosed, Code: code, Err: err}:
			case <-c.done:
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		select {
		case c.events <- ports.ChannelEvent{Kind: ports.ChannelMessage, Data: data}:
		case <-c.done:
			return
		}
	}
}

func (c *wsChannel) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				if c.logger != nil {
					c.logger.Debugw("ping failed", "error", err)
				}
				return
			}
		}
	}
}
