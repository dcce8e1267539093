package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"
	"voicelink/pkg/retry"

	"go.uber.org/zap"
)

// SessionClientConfig controls the connection lifecycle.
type SessionClientConfig struct {
	URL         string
	DialTimeout time.Duration // covers socket dial plus the connection_established ack
	Reconnect   retry.Config
}

// DefaultSessionClientConfig returns the stock lifecycle settings.
func DefaultSessionClientConfig(url string) SessionClientConfig {
	return SessionClientConfig{
		URL:         url,
		DialTimeout: 15 * time.Second,
		Reconnect: retry.Config{
			Enabled:      true,
			MaxAttempts:  5,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

// MessageHandler receives application-level channel messages. Only
// invoked while the client is connected.
type MessageHandler func(msgType string, data []byte)

// SessionClient owns exactly one logical channel to the session service
// and exposes its lifecycle as an observable state plus an error detail.
//
// Every transition is serialized under the client mutex. Late-firing
// timers and reads from a torn-down channel are fenced by an epoch
// counter: teardown bumps the epoch, and any callback holding a stale
// epoch returns without touching state.
type SessionClient struct {
	cfg     SessionClientConfig
	dialer  ports.ChannelDialer
	creds   ports.CredentialStore
	catalog *MessageCatalog
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	state    domain.ConnectionState
	lastErr  *domain.ConnectionError
	session  domain.SessionInfo
	ch       ports.Channel
	epoch    uint64
	attempts int

	ackTimer     *time.Timer
	backoffTimer *time.Timer

	observers []ports.ConnectionObserver
	handler   MessageHandler
}

func NewSessionClient(cfg SessionClientConfig, dialer ports.ChannelDialer, creds ports.CredentialStore, catalog *MessageCatalog, logger *zap.SugaredLogger) *SessionClient {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	return &SessionClient{
		cfg:     cfg,
		dialer:  dialer,
		creds:   creds,
		catalog: catalog,
		logger:  logger,
		state:   domain.StateDisconnected,
	}
}

// AddObserver registers a state-change observer. Not safe to call
// concurrently with a transition in flight; register before Connect.
func (c *SessionClient) AddObserver(o ports.ConnectionObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// SetMessageHandler installs the application message dispatcher.
func (c *SessionClient) SetMessageHandler(h MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// State returns the current connection state and failure detail.
func (c *SessionClient) State() (domain.ConnectionState, *domain.ConnectionError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Session returns the identity assigned by the service, valid once
// connected.
func (c *SessionClient) Session() domain.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Connected reports whether the channel is open and acknowledged.
func (c *SessionClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == domain.StateConnected
}

// Connect opens the channel. A no-op while already connecting or
// connected; from any other state it begins a fresh attempt.
func (c *SessionClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.StateConnecting, domain.StateConnected:
		return nil
	case domain.StateReconnecting:
		// Collapse the pending backoff into an immediate attempt.
		c.stopTimersLocked()
	}

	c.setStateLocked(domain.StateConnecting, nil)
	epoch := c.epoch
	go c.dial(epoch)
	return nil
}

// Disconnect closes the channel and always lands in DISCONNECTED.
// Idempotent; synchronously invalidates pending timers so nothing from
// the torn-down channel can fire afterwards.
func (c *SessionClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.attempts = 0
	if c.state != domain.StateDisconnected {
		c.setStateLocked(domain.StateDisconnected, nil)
	}
	return nil
}

// Reconnect forces an immediate fresh attempt regardless of the backoff
// schedule and resets the attempt counter. This is the explicit retry
// path out of TIMEOUT, ERROR and SERVER_ERROR.
func (c *SessionClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.attempts = 0
	c.setStateLocked(domain.StateConnecting, nil)
	epoch := c.epoch
	go c.dial(epoch)
	return nil
}

// Reauthenticate installs a fresh credential and reconnects. This is
// the only way out of AUTH_FAILED; stale credentials are never retried
// automatically.
func (c *SessionClient) Reauthenticate(token string) error {
	if c.creds == nil {
		return errors.New("no credential store configured")
	}
	if err := c.creds.SetToken(token); err != nil {
		return err
	}
	return c.Reconnect()
}

// SendJoin announces the client into a voice session.
func (c *SessionClient) SendJoin(ctx context.Context, sessionID string) error {
	return c.send(ctx, domain.JoinSessionMessage{Type: domain.MsgJoinSession, SessionID: sessionID})
}

// SendLeave announces the client out of a voice session.
func (c *SessionClient) SendLeave(ctx context.Context, sessionID string) error {
	return c.send(ctx, domain.LeaveSessionMessage{Type: domain.MsgLeaveSession, SessionID: sessionID})
}

func (c *SessionClient) send(ctx context.Context, v interface{}) error {
	c.mu.Lock()
	ch := c.ch
	connected := c.state == domain.StateConnected
	c.mu.Unlock()

	if !connected || ch == nil {
		return domain.ErrNotConnected
	}
	return ch.Send(ctx, v)
}

// dial runs outside the lock; it re-validates the epoch before every
// state mutation.
func (c *SessionClient) dial(epoch uint64) {
	deadline := time.Now().Add(c.cfg.DialTimeout)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	ch, err := c.dialer.Dial(ctx, c.cfg.URL)

	c.mu.Lock()
	if c.epoch != epoch || c.state != domain.StateConnecting {
		c.mu.Unlock()
		if err == nil {
			ch.Close()
		}
		return
	}

	if err != nil {
		c.handleDialErrorLocked(err)
		c.mu.Unlock()
		return
	}

	c.ch = ch

	// Stay CONNECTING until the service acknowledges with
	// connection_established; the remainder of the dial window bounds
	// the wait.
	c.ackTimer = time.AfterFunc(time.Until(deadline), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch || c.state != domain.StateConnecting {
			return
		}
		// The channel still emits its close event after this; the
		// epoch bump keeps it from re-entering the close handler.
		c.teardownLocked()
		c.setStateLocked(domain.StateTimeout, &domain.ConnectionError{
			Category: domain.CategoryTimeout,
			Detail:   "no open acknowledgment within the timeout window",
			At:       time.Now(),
		})
	})
	c.mu.Unlock()

	go c.readLoop(epoch, ch)
}

func (c *SessionClient) handleDialErrorLocked(err error) {
	now := time.Now()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.setStateLocked(domain.StateTimeout, &domain.ConnectionError{
			Category: domain.CategoryTimeout,
			Detail:   "connection attempt timed out",
			At:       now,
		})
	case errors.Is(err, domain.ErrTokenExpired):
		c.setStateLocked(domain.StateAuthFailed, &domain.ConnectionError{
			Category: domain.CategoryAuth,
			Detail:   "credentials rejected before dialing",
			At:       now,
		})
	default:
		// Transient transport failure; falls under the automatic
		// reconnection policy.
		c.scheduleReconnectLocked(&domain.ConnectionError{
			Category: domain.CategoryTransport,
			Detail:   err.Error(),
			At:       now,
		})
	}
}

func (c *SessionClient) readLoop(epoch uint64, ch ports.Channel) {
	for ev := range ch.Events() {
		switch ev.Kind {
		case ports.ChannelMessage:
			c.handleMessage(epoch, ev.Data)
		case ports.ChannelClosed:
			c.mu.Lock()
			if c.epoch == epoch {
				c.handleCloseLocked(ev.Code, ev.Err)
			}
			c.mu.Unlock()
			return
		}
	}
}

func (c *SessionClient) handleMessage(epoch uint64, data []byte) {
	msgType, err := domain.DecodeEnvelope(data)
	if err != nil {
		c.logger.Warnw("discarding malformed channel message", "error", err)
		return
	}

	switch msgType {
	case domain.MsgConnectionEstablished:
		var msg domain.ConnectionEstablishedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warnw("malformed connection_established", "error", err)
			return
		}
		c.mu.Lock()
		if c.epoch == epoch && c.state == domain.StateConnecting {
			c.stopTimersLocked()
			c.attempts = 0
			c.session = domain.SessionInfo{
				UserID:    msg.UserID,
				SessionID: msg.SessionID,
				StartedAt: time.Unix(msg.Timestamp, 0),
			}
			c.setStateLocked(domain.StateConnected, nil)
		}
		c.mu.Unlock()

	case domain.MsgError:
		var msg domain.ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.handleServerErrorLocked(msg)
		}
		c.mu.Unlock()

	default:
		c.mu.Lock()
		handler := c.handler
		connected := c.epoch == epoch && c.state == domain.StateConnected
		c.mu.Unlock()
		// Application messages are only meaningful inside an active
		// session; anything arriving mid-reconnect is dropped.
		if connected && handler != nil {
			handler(msgType, data)
		}
	}
}

func (c *SessionClient) handleServerErrorLocked(msg domain.ErrorMessage) {
	now := time.Now()
	// Teardown rather than a bare close: the channel's trailing close
	// event must not be classified again, or it would schedule a
	// reconnect out of a terminal state.
	if msg.Code == "auth_failed" || msg.Code == "unauthorized" {
		c.teardownLocked()
		c.setStateLocked(domain.StateAuthFailed, &domain.ConnectionError{
			Category: domain.CategoryAuth,
			Detail:   msg.Message,
			At:       now,
		})
		return
	}
	c.teardownLocked()
	c.setStateLocked(domain.StateServerError, &domain.ConnectionError{
		Category: domain.CategoryServer,
		Detail:   msg.Message,
		At:       now,
	})
}

// handleCloseLocked classifies a channel close and drives the follow-up
// transition. 1002/1003 are protocol violations and terminal; 1008 is
// an auth rejection and terminal; 1011 is a server-side failure and
// terminal; an abnormal close (1006 or none) enters the automatic
// reconnection cycle when enabled.
func (c *SessionClient) handleCloseLocked(code int, err error) {
	c.ch = nil
	c.stopTimersLocked()
	now := time.Now()

	detailText := ""
	if c.catalog != nil {
		detailText = c.catalog.CloseDetail(code)
	} else if err != nil {
		detailText = err.Error()
	}

	switch code {
	case 1000:
		c.setStateLocked(domain.StateDisconnected, nil)

	case 1008:
		c.setStateLocked(domain.StateAuthFailed, &domain.ConnectionError{
			Category:  domain.CategoryAuth,
			CloseCode: code,
			Detail:    detailText,
			At:        now,
		})

	case 1011:
		c.setStateLocked(domain.StateServerError, &domain.ConnectionError{
			Category:  domain.CategoryServer,
			CloseCode: code,
			Detail:    detailText,
			At:        now,
		})

	case 1002, 1003:
		c.setStateLocked(domain.StateError, &domain.ConnectionError{
			Category:  domain.CategoryProtocol,
			CloseCode: code,
			Detail:    detailText,
			At:        now,
		})

	default:
		detail := &domain.ConnectionError{
			Category:  domain.CategoryTransport,
			CloseCode: code,
			Detail:    detailText,
			At:        now,
		}
		if !c.cfg.Reconnect.Enabled {
			c.setStateLocked(domain.StateDisconnected, detail)
			return
		}
		c.scheduleReconnectLocked(detail)
	}
}

// scheduleReconnectLocked advances the bounded backoff schedule or
// terminates in ERROR once the attempt budget is spent.
func (c *SessionClient) scheduleReconnectLocked(detail *domain.ConnectionError) {
	if !c.cfg.Reconnect.Enabled {
		c.setStateLocked(domain.StateError, detail)
		return
	}

	c.attempts++
	if c.attempts > c.cfg.Reconnect.MaxAttempts {
		c.setStateLocked(domain.StateError, &domain.ConnectionError{
			Category: domain.CategoryTransport,
			Detail:   "reconnect attempts exhausted",
			At:       time.Now(),
		})
		return
	}

	delay := retry.Delay(c.cfg.Reconnect, c.attempts-1)
	c.logger.Infow("scheduling reconnect",
		"attempt", c.attempts,
		"max_attempts", c.cfg.Reconnect.MaxAttempts,
		"delay", delay,
	)
	c.setStateLocked(domain.StateReconnecting, detail)

	epoch := c.epoch
	c.backoffTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.epoch != epoch || c.state != domain.StateReconnecting {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(domain.StateConnecting, nil)
		c.mu.Unlock()
		c.dial(epoch)
	})
}

// teardownLocked bumps the epoch, stops timers and closes the channel,
// guaranteeing no late event from the old lineage mutates state.
func (c *SessionClient) teardownLocked() {
	c.epoch++
	c.stopTimersLocked()
	c.closeChannelLocked()
}

func (c *SessionClient) stopTimersLocked() {
	if c.ackTimer != nil {
		c.ackTimer.Stop()
		c.ackTimer = nil
	}
	if c.backoffTimer != nil {
		c.backoffTimer.Stop()
		c.backoffTimer = nil
	}
}

func (c *SessionClient) closeChannelLocked() {
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
}

func (c *SessionClient) setStateLocked(state domain.ConnectionState, detail *domain.ConnectionError) {
	prev := c.state
	c.state = state
	c.lastErr = detail

	if c.logger != nil {
		c.logger.Infow("connection state change",
			"from", prev.String(),
			"to", state.String(),
		)
	}

	observers := make([]ports.ConnectionObserver, len(c.observers))
	copy(observers, c.observers)
	for _, o := range observers {
		o.OnConnectionStateChange(state, detail)
	}
}
