package bingosync

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/bingolive/bingosync-sdk-go/bingosync/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Client owns at most one live channel to a per-event game feed, with
// token-based authentication and bounded fixed-interval reconnection.
// It carries no bingo knowledge; pair it with a Store for game state.
type Client struct {
	cfg        Config
	logger     Logger
	clock      clockwork.Clock
	dispatcher Dispatcher

	onOpen         func()
	onClose        func(error)
	onStateChanged func(StateEvent)

	mu       sync.Mutex
	state    ConnState
	conn     *internal.Conn
	eventID  string
	token    string
	attempts int
	session  uuid.UUID
	cancel   context.CancelFunc
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: noopLogger{},
		clock:  clockwork.NewRealClock(),
		state:  StateIdle,
	}
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// SetClock overrides the clock used for the reconnect delay.
// Tests pass a clockwork.FakeClock; production code never needs this.
func (c *Client) SetClock(clk clockwork.Clock) {
	if clk == nil {
		return
	}
	c.clock = clk
}

// OnNumberCalled registers callback for number-called events.
func (c *Client) OnNumberCalled(fn func(NumberCalledEvent)) { c.dispatcher.SetOnNumberCalled(fn) }

// OnWinnerDeclared registers callback for winner-declared events.
func (c *Client) OnWinnerDeclared(fn func(WinnerInfo)) { c.dispatcher.SetOnWinnerDeclared(fn) }

// OnGameReset registers callback for game-reset events.
func (c *Client) OnGameReset(fn func()) { c.dispatcher.SetOnGameReset(fn) }

// OnGameState registers callback for full-state snapshots.
func (c *Client) OnGameState(fn func(GameSnapshot)) { c.dispatcher.SetOnGameState(fn) }

// OnError registers callback for transport and protocol errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnOpen registers callback fired whenever the channel opens, including
// after an automatic reconnect.
func (c *Client) OnOpen(fn func()) { c.onOpen = fn }

// OnClose registers callback fired when the channel closes. The error is
// nil for an explicit disconnect.
func (c *Client) OnClose(fn func(error)) { c.onClose = fn }

// OnStateChanged registers callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) { c.onStateChanged = fn }

// Connect opens a channel to the given event, authenticated via token.
// Any existing channel is torn down first and the reconnect budget is
// reset. A blank or placeholder event id is rejected with no side effects;
// web callers have been seen serializing missing ids as "undefined".
// A dial failure is returned, but bounded retries continue in the
// background until Disconnect or the budget runs out.
func (c *Client) Connect(ctx context.Context, eventID, token string) error {
	id := strings.TrimSpace(eventID)
	if id == "" || id == "undefined" || id == "null" {
		return ErrInvalidEventID
	}
	if c.cfg.BaseURL == "" {
		return NewError(ErrorConnection, "empty base URL")
	}

	_ = c.Disconnect()

	c.mu.Lock()
	c.eventID = id
	c.token = token
	c.attempts = 0
	c.session = uuid.New()
	session := c.session
	old := c.state
	c.state = StateConnecting
	c.mu.Unlock()

	c.fireState(old, StateConnecting, nil)
	return c.dial(ctx, session)
}

// Send delivers a command immediately if the channel is open. There is no
// outbound queue: when the channel is closed it fails synchronously with
// ErrorNotConnected and callers fall back to local state.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		return NewError(ErrorNotConnected, "channel is not open")
	}
	if err := conn.WriteJSON(ctx, cmd); err != nil {
		return WrapError(ErrorConnection, "write failed", err)
	}
	return nil
}

// Disconnect closes the channel if open. Idempotent. Clears the bound
// event id and token and invalidates any pending reconnect timer; the
// attempt counter is reset by the next explicit Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	old := c.state
	var err error
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		err = c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
		c.conn = nil
	}
	c.eventID = ""
	c.token = ""
	c.session = uuid.New() // any pending retry now fails its identity check
	c.state = StateIdle
	c.mu.Unlock()

	if old != StateIdle {
		c.fireState(old, StateIdle, nil)
		if c.onClose != nil {
			c.onClose(nil)
		}
	}
	return err
}

// IsConnected reflects only the transport-layer open/closed status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EventID returns the event id the client is bound to, or "" when idle.
func (c *Client) EventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventID
}

func (c *Client) dial(ctx context.Context, session uuid.UUID) error {
	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		return NewError(ErrorDisconnected, "session superseded")
	}
	base, eventID, token := c.cfg.BaseURL, c.eventID, c.token
	c.mu.Unlock()

	u, err := wsURL(base, eventID, token)
	if err != nil {
		return c.dialFailed(session, WrapError(ErrorConnection, "invalid base URL", err))
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u, nil)
	if err != nil {
		return c.dialFailed(session, WrapError(ErrorConnection, "dial failed", err))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		cancel()
		_ = ws.Close(websocket.StatusNormalClosure, "superseded")
		return NewError(ErrorDisconnected, "session superseded")
	}
	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.conn = conn
	c.cancel = cancel
	c.attempts = 0
	old := c.state
	c.state = StateOpen
	c.mu.Unlock()

	c.fireState(old, StateOpen, nil)
	if c.onOpen != nil {
		c.onOpen()
	}
	go c.readLoop(runCtx, session, conn)
	return nil
}

func (c *Client) dialFailed(session uuid.UUID, serr *SyncError) error {
	c.logger.Warn("dial failed", map[string]any{"error": serr.Error()})
	c.dispatcher.fireError(serr)
	c.scheduleRetry(session, serr)
	return serr
}

// readLoop reads frames from the conn its own session dialed. The conn is
// a parameter so a loop superseded before it starts (a callback in dial
// can re-Connect) never touches the replacement session's socket.
func (c *Client) readLoop(ctx context.Context, session uuid.UUID, conn *internal.Conn) {
	for {
		data, err := conn.ReadFrame(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				if ctx.Err() == nil {
					// Server ended the session cleanly; no retry.
					c.handleCleanClose(session)
				}
				return
			}
			c.dispatcher.fireError(WrapError(ErrorConnection, "read error", err))
			c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			c.handleUnexpectedClose(session, err)
			return
		}

		var env Envelope
		if uerr := json.Unmarshal(data, &env); uerr != nil {
			c.logger.Warn("dropping malformed frame", map[string]any{"error": uerr.Error()})
			continue
		}
		if !c.dispatcher.Dispatch(env) {
			c.logger.Debug("ignoring unknown message type", map[string]any{"type": env.Type})
		}
	}
}

func (c *Client) handleCleanClose(session uuid.UUID) {
	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	old := c.state
	c.state = StateIdle
	c.mu.Unlock()

	c.fireState(old, StateIdle, nil)
	if c.onClose != nil {
		c.onClose(nil)
	}
}

func (c *Client) handleUnexpectedClose(session uuid.UUID, cause error) {
	c.mu.Lock()
	if session != c.session {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.conn = nil
	c.mu.Unlock()

	if c.onClose != nil {
		c.onClose(cause)
	}
	c.scheduleRetry(session, cause)
}

// scheduleRetry arms one fixed-delay reconnect attempt if the budget
// allows. The timer callback re-checks the session identity so a timer
// armed by a superseded session can never act on the current one.
func (c *Client) scheduleRetry(session uuid.UUID, cause error) {
	c.mu.Lock()
	if session != c.session || c.eventID == "" {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		old := c.state
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Warn("reconnect budget exhausted", map[string]any{
			"max_attempts": c.cfg.MaxReconnectAttempts,
		})
		c.fireState(old, StateIdle, cause)
		return
	}
	c.attempts++
	attempt := c.attempts
	old := c.state
	c.state = StateRetryWait
	c.mu.Unlock()

	c.fireState(old, StateRetryWait, cause)
	c.logger.Info("scheduling reconnect", map[string]any{
		"attempt": attempt,
		"delay":   c.cfg.ReconnectDelay.String(),
	})

	timer := c.clock.NewTimer(c.cfg.ReconnectDelay)
	go func() {
		<-timer.Chan()
		c.mu.Lock()
		if session != c.session || c.state != StateRetryWait {
			c.mu.Unlock()
			return
		}
		prev := c.state
		c.state = StateConnecting
		c.mu.Unlock()
		c.fireState(prev, StateConnecting, nil)
		_ = c.dial(context.Background(), session)
	}()
}

func (c *Client) fireState(oldState, newState ConnState, err error) {
	if oldState == newState || c.onStateChanged == nil {
		return
	}
	c.onStateChanged(StateEvent{OldState: oldState, NewState: newState, Error: err})
}

func wsURL(base, eventID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/events/" + url.PathEscape(eventID)
	// Token travels as a query parameter: the handshake cannot carry
	// custom headers from browser peers sharing this endpoint.
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// isExpectedDisconnect is true only for our own teardown or a deliberate
// server goodbye carrying a close frame. An abrupt drop (io.EOF, a reset,
// any frame-level failure) is NOT expected: those are exactly the blips
// the retry machinery exists for and must reach handleUnexpectedClose.
func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
