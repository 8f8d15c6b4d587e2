package bingosync

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

// GameState is the authoritative local view of a game session. Values are
// copies; mutate only through Store operations.
type GameState struct {
	EventID       string
	CalledNumbers []int     // insertion order = call order, no duplicates
	CurrentNumber int       // 0 until the first call; valid calls are 1..75
	LastCalledAt  time.Time // zero until the first call
	IsPlaying     bool
	IsConnected   bool
	Winner        *WinnerInfo
}

// Transport is the connection surface the store depends on. *Client
// satisfies it; tests substitute fakes.
type Transport interface {
	Connect(ctx context.Context, eventID, token string) error
	Disconnect() error
	Send(ctx context.Context, cmd Command) error
	IsConnected() bool

	OnOpen(fn func())
	OnClose(fn func(error))
	OnNumberCalled(fn func(NumberCalledEvent))
	OnWinnerDeclared(fn func(WinnerInfo))
	OnGameReset(fn func())
	OnGameState(fn func(GameSnapshot))
}

// Store is the single writer of GameState. Inbound events apply
// idempotently, so at-least-once delivery from the transport is safe; a
// full snapshot replaces state wholesale after a reconnect. When the
// transport is down, number calls degrade to a local practice-mode draw.
type Store struct {
	conn   Transport
	logger Logger
	clock  clockwork.Clock
	rng    *rand.Rand

	mu     sync.Mutex
	state  GameState
	called map[int]bool
	subs   []func(GameState)
}

// NewStore wires a store to a transport's callback surface.
func NewStore(conn Transport) *Store {
	s := &Store{
		conn:   conn,
		logger: noopLogger{},
		clock:  clockwork.NewRealClock(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		called: make(map[int]bool),
	}
	conn.OnOpen(s.handleOpen)
	conn.OnClose(s.handleClose)
	conn.OnNumberCalled(s.handleNumberCalled)
	conn.OnWinnerDeclared(s.DeclareWinner)
	conn.OnGameReset(s.handleGameReset)
	conn.OnGameState(s.handleSnapshot)
	return s
}

// SetLogger overrides logger (optional).
func (s *Store) SetLogger(l Logger) {
	if l == nil {
		return
	}
	s.logger = l
}

// SetClock overrides the clock used for call timestamps (tests only).
func (s *Store) SetClock(clk clockwork.Clock) {
	if clk == nil {
		return
	}
	s.clock = clk
}

// InitializeSession binds the store to an event channel and connects.
// Call history survives disconnect/reconnect; only a reset clears it.
// The event stays bound on a dial failure, since the transport keeps
// retrying in the background; it does not bind on a rejected event id.
func (s *Store) InitializeSession(ctx context.Context, eventID, token string) error {
	err := s.conn.Connect(ctx, eventID, token)
	if err != nil && errors.Is(err, ErrInvalidEventID) {
		return err
	}
	s.mu.Lock()
	s.state.EventID = eventID
	s.mu.Unlock()
	s.notify()
	return err
}

// EndSession disconnects and unbinds the event. Called numbers are kept;
// history is only cleared by an explicit reset, local or server-driven.
func (s *Store) EndSession() error {
	err := s.conn.Disconnect()
	s.mu.Lock()
	s.state.EventID = ""
	s.state.IsConnected = false
	s.mu.Unlock()
	s.notify()
	return err
}

// RequestNumberCall draws a number. Connected, it forwards the draw to the
// server and waits for the authoritative echo without touching local
// state. Disconnected, it applies the draw locally (practice mode). With
// all 75 numbers called, or after a winner, this is a no-op.
func (s *Store) RequestNumberCall(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Winner != nil {
		s.mu.Unlock()
		return nil
	}
	number, ok := s.drawLocked()
	eventID := s.state.EventID
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if s.conn.IsConnected() {
		err := s.conn.Send(ctx, Command{
			Type:    MsgCallNumber,
			Payload: CallNumberCommand{EventID: eventID, Number: number},
		})
		if err == nil {
			return nil
		}
		// Lost the channel between the check and the write; fall back.
		s.logger.Warn("call-number send failed, applying locally", map[string]any{
			"number": number,
			"error":  err.Error(),
		})
	}

	s.applyCall(number, s.clock.Now())
	return nil
}

// ResetSession clears call history and the winner and stops play.
// Connectivity and the bound event are untouched.
func (s *Store) ResetSession() {
	s.mu.Lock()
	s.state.CalledNumbers = nil
	s.state.CurrentNumber = 0
	s.state.LastCalledAt = time.Time{}
	s.state.IsPlaying = false
	s.state.Winner = nil
	s.called = make(map[int]bool)
	s.mu.Unlock()
	s.notify()
}

// DeclareWinner records the winner and ends the session. Idempotent.
func (s *Store) DeclareWinner(w WinnerInfo) {
	s.mu.Lock()
	if s.state.Winner != nil && *s.state.Winner == w {
		s.mu.Unlock()
		return
	}
	s.state.Winner = &w
	s.state.IsPlaying = false
	s.mu.Unlock()
	s.notify()
}

// ClearWinner dismisses a winner announcement without ending the round.
func (s *Store) ClearWinner() {
	s.mu.Lock()
	s.state.Winner = nil
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a state copy after every mutation.
// Subscribers must not call back into the store.
func (s *Store) Subscribe(fn func(GameState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) handleOpen() {
	s.mu.Lock()
	s.state.IsConnected = true
	s.mu.Unlock()
	s.notify()
}

func (s *Store) handleClose(error) {
	s.mu.Lock()
	s.state.IsConnected = false
	s.mu.Unlock()
	s.notify()
}

func (s *Store) handleNumberCalled(ev NumberCalledEvent) {
	calledAt := s.clock.Now()
	if ev.CalledAt != "" {
		if t, err := time.Parse(time.RFC3339, ev.CalledAt); err == nil {
			calledAt = t
		}
	}
	s.applyCall(ev.Number, calledAt)
}

func (s *Store) handleGameReset() {
	s.ResetSession()
}

// handleSnapshot replaces local state wholesale; the server is the source
// of truth on reconnect. Missing fields default to their zero values.
func (s *Store) handleSnapshot(snap GameSnapshot) {
	s.mu.Lock()
	s.state.CalledNumbers = append([]int(nil), snap.CalledNumbers...)
	s.called = make(map[int]bool, len(snap.CalledNumbers))
	for _, n := range snap.CalledNumbers {
		s.called[n] = true
	}
	s.state.CurrentNumber = 0
	if snap.CurrentNumber != nil {
		s.state.CurrentNumber = *snap.CurrentNumber
	}
	s.state.IsPlaying = snap.IsPlaying
	s.state.Winner = nil
	if snap.WinnerInfo != nil {
		w := *snap.WinnerInfo
		s.state.Winner = &w
	}
	s.state.LastCalledAt = time.Time{}
	if snap.LastCalledAt != nil {
		if t, err := time.Parse(time.RFC3339, *snap.LastCalledAt); err == nil {
			s.state.LastCalledAt = t
		}
	}
	s.mu.Unlock()
	s.notify()
}

// applyCall appends a call if it is in range and not yet recorded.
// Duplicates are idempotent successes; redelivery after a reconnect must
// not grow the sequence.
func (s *Store) applyCall(number int, calledAt time.Time) {
	if number < MinNumber || number > MaxNumber {
		s.logger.Warn("ignoring out-of-range number", map[string]any{"number": number})
		return
	}
	s.mu.Lock()
	if s.called[number] {
		s.mu.Unlock()
		return
	}
	s.called[number] = true
	s.state.CalledNumbers = append(s.state.CalledNumbers, number)
	s.state.CurrentNumber = number
	s.state.LastCalledAt = calledAt
	s.state.IsPlaying = true
	s.mu.Unlock()
	s.notify()
}

// drawLocked picks a pseudo-random number from the remaining pool.
func (s *Store) drawLocked() (int, bool) {
	pool := lo.Filter(lo.RangeFrom(MinNumber, MaxNumber-MinNumber+1), func(n int, _ int) bool {
		return !s.called[n]
	})
	if len(pool) == 0 {
		return 0, false
	}
	return pool[s.rng.IntN(len(pool))], true
}

func (s *Store) snapshotLocked() GameState {
	snap := s.state
	snap.CalledNumbers = append([]int(nil), s.state.CalledNumbers...)
	if s.state.Winner != nil {
		w := *s.state.Winner
		snap.Winner = &w
	}
	return snap
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := append([]func(GameState){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}
