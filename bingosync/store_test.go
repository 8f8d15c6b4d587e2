package bingosync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport satisfies Transport and lets tests drive the callback
// surface directly, without a socket.
type fakeTransport struct {
	connected  bool
	connectErr error
	sendErr    error
	sent       []Command

	onOpen           func()
	onClose          func(error)
	onNumberCalled   func(NumberCalledEvent)
	onWinnerDeclared func(WinnerInfo)
	onGameReset      func()
	onGameState      func(GameSnapshot)
}

func (f *fakeTransport) Connect(_ context.Context, _, _ string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	if f.onOpen != nil {
		f.onOpen()
	}
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.connected = false
	if f.onClose != nil {
		f.onClose(nil)
	}
	return nil
}

func (f *fakeTransport) Send(_ context.Context, cmd Command) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) OnOpen(fn func())                          { f.onOpen = fn }
func (f *fakeTransport) OnClose(fn func(error))                    { f.onClose = fn }
func (f *fakeTransport) OnNumberCalled(fn func(NumberCalledEvent)) { f.onNumberCalled = fn }
func (f *fakeTransport) OnWinnerDeclared(fn func(WinnerInfo))      { f.onWinnerDeclared = fn }
func (f *fakeTransport) OnGameReset(fn func())                     { f.onGameReset = fn }
func (f *fakeTransport) OnGameState(fn func(GameSnapshot))         { f.onGameState = fn }

func newTestStore(t *testing.T) (*Store, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	return NewStore(ft), ft
}

func TestStoreIgnoresDuplicateCalls(t *testing.T) {
	s, ft := newTestStore(t)

	for _, n := range []int{5, 12, 5, 33, 12, 5} {
		ft.onNumberCalled(NumberCalledEvent{Number: n})
	}

	snap := s.Snapshot()
	assert.Equal(t, []int{5, 12, 33}, snap.CalledNumbers)
	assert.Equal(t, 33, snap.CurrentNumber)
}

func TestStoreCurrentNumberTracksLastAccepted(t *testing.T) {
	s, ft := newTestStore(t)

	ft.onNumberCalled(NumberCalledEvent{Number: 7})
	ft.onNumberCalled(NumberCalledEvent{Number: 42})
	ft.onNumberCalled(NumberCalledEvent{Number: 7}) // duplicate, ignored

	snap := s.Snapshot()
	assert.Equal(t, 42, snap.CurrentNumber)
	assert.Contains(t, snap.CalledNumbers, snap.CurrentNumber)
	assert.True(t, snap.IsPlaying)
}

func TestStoreCallTimestampFromPayload(t *testing.T) {
	s, ft := newTestStore(t)

	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	ft.onNumberCalled(NumberCalledEvent{Number: 11, CalledAt: at.Format(time.RFC3339)})

	assert.True(t, at.Equal(s.Snapshot().LastCalledAt))
}

func TestStoreSnapshotReplacesStateWholesale(t *testing.T) {
	s, ft := newTestStore(t)

	// Seed a conflicting prior state.
	ft.onNumberCalled(NumberCalledEvent{Number: 60})
	ft.onWinnerDeclared(WinnerInfo{UserID: 9, UserName: "stale", CardID: 1})

	current := 44
	ft.onGameState(GameSnapshot{
		CalledNumbers: []int{3, 17, 44},
		CurrentNumber: &current,
		IsPlaying:     true,
	})

	snap := s.Snapshot()
	assert.Equal(t, []int{3, 17, 44}, snap.CalledNumbers)
	assert.Equal(t, 44, snap.CurrentNumber)
	assert.True(t, snap.IsPlaying)
	assert.Nil(t, snap.Winner)
	assert.True(t, snap.LastCalledAt.IsZero())

	// Redelivery of a snapshotted number stays deduplicated.
	ft.onNumberCalled(NumberCalledEvent{Number: 17})
	assert.Equal(t, []int{3, 17, 44}, s.Snapshot().CalledNumbers)
}

func TestStoreResetClearsHistoryNotConnectivity(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))

	ft.onNumberCalled(NumberCalledEvent{Number: 15})
	ft.onWinnerDeclared(WinnerInfo{UserID: 1, UserName: "ana", CardID: 77})

	s.ResetSession()

	snap := s.Snapshot()
	assert.Empty(t, snap.CalledNumbers)
	assert.Zero(t, snap.CurrentNumber)
	assert.Nil(t, snap.Winner)
	assert.False(t, snap.IsPlaying)
	assert.True(t, snap.IsConnected)
	assert.Equal(t, "42", snap.EventID)
}

func TestStoreOfflineDrawExhaustsPool(t *testing.T) {
	s, ft := newTestStore(t)

	// 74 of 75 numbers already called; only 38 remains.
	var called []int
	for n := MinNumber; n <= MaxNumber; n++ {
		if n != 38 {
			called = append(called, n)
		}
	}
	ft.onGameState(GameSnapshot{CalledNumbers: called, IsPlaying: true})

	require.NoError(t, s.RequestNumberCall(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, 38, snap.CurrentNumber)
	assert.Len(t, snap.CalledNumbers, 75)

	// Pool exhausted: further calls are no-ops, not errors.
	require.NoError(t, s.RequestNumberCall(context.Background()))
	assert.Len(t, s.Snapshot().CalledNumbers, 75)
	assert.Equal(t, 38, s.Snapshot().CurrentNumber)
}

func TestStoreConnectedCallForwardsWithoutLocalMutation(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))

	require.NoError(t, s.RequestNumberCall(context.Background()))

	require.Len(t, ft.sent, 1)
	assert.Equal(t, MsgCallNumber, ft.sent[0].Type)
	cmd, ok := ft.sent[0].Payload.(CallNumberCommand)
	require.True(t, ok)
	assert.Equal(t, "42", cmd.EventID)
	assert.GreaterOrEqual(t, cmd.Number, MinNumber)
	assert.LessOrEqual(t, cmd.Number, MaxNumber)

	// The authoritative mutation only happens on the inbound echo.
	assert.Empty(t, s.Snapshot().CalledNumbers)

	ft.onNumberCalled(NumberCalledEvent{Number: cmd.Number})
	assert.Equal(t, []int{cmd.Number}, s.Snapshot().CalledNumbers)
}

func TestStoreFallsBackWhenSendFails(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))
	ft.sendErr = NewError(ErrorNotConnected, "channel is not open")

	require.NoError(t, s.RequestNumberCall(context.Background()))

	snap := s.Snapshot()
	assert.Len(t, snap.CalledNumbers, 1)
	assert.Equal(t, snap.CalledNumbers[0], snap.CurrentNumber)
}

func TestStoreWinnerIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	w := WinnerInfo{UserID: 3, UserName: "bea", CardID: 12, IsCurrentUser: true}

	s.DeclareWinner(w)
	snap := s.Snapshot()
	require.NotNil(t, snap.Winner)
	assert.Equal(t, w, *snap.Winner)
	assert.False(t, snap.IsPlaying)

	var notified int
	s.Subscribe(func(GameState) { notified++ })
	s.DeclareWinner(w) // no observable difference
	snap = s.Snapshot()
	assert.Equal(t, w, *snap.Winner)
	assert.False(t, snap.IsPlaying)
	assert.Zero(t, notified)
}

func TestStoreNoCallsWhileWinnerStands(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))

	s.DeclareWinner(WinnerInfo{UserID: 3, UserName: "bea", CardID: 12})
	require.NoError(t, s.RequestNumberCall(context.Background()))
	assert.Empty(t, ft.sent)
	assert.Empty(t, s.Snapshot().CalledNumbers)
}

func TestStoreClearWinnerKeepsRound(t *testing.T) {
	s, ft := newTestStore(t)
	ft.onNumberCalled(NumberCalledEvent{Number: 4})
	s.DeclareWinner(WinnerInfo{UserID: 3, UserName: "bea", CardID: 12})

	s.ClearWinner()

	snap := s.Snapshot()
	assert.Nil(t, snap.Winner)
	assert.False(t, snap.IsPlaying) // dismissing the banner does not resume play
	assert.Equal(t, []int{4}, snap.CalledNumbers)
}

func TestStoreGameResetMessageClearsWinner(t *testing.T) {
	s, ft := newTestStore(t)
	ft.onNumberCalled(NumberCalledEvent{Number: 21})
	ft.onWinnerDeclared(WinnerInfo{UserID: 5, UserName: "cy", CardID: 9})

	ft.onGameReset()

	snap := s.Snapshot()
	assert.Empty(t, snap.CalledNumbers)
	assert.Nil(t, snap.Winner)
	assert.False(t, snap.IsPlaying)
}

func TestStoreEndSessionKeepsHistory(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))
	ft.onNumberCalled(NumberCalledEvent{Number: 64})

	require.NoError(t, s.EndSession())

	snap := s.Snapshot()
	assert.False(t, snap.IsConnected)
	assert.Empty(t, snap.EventID)
	assert.Equal(t, []int{64}, snap.CalledNumbers)
}

func TestStoreConnectionBlipPreservesHistory(t *testing.T) {
	s, ft := newTestStore(t)
	require.NoError(t, s.InitializeSession(context.Background(), "42", "token123"))
	ft.onNumberCalled(NumberCalledEvent{Number: 31})

	ft.onClose(NewError(ErrorConnection, "read error"))
	assert.False(t, s.Snapshot().IsConnected)
	assert.Equal(t, []int{31}, s.Snapshot().CalledNumbers)
	assert.Equal(t, "42", s.Snapshot().EventID)

	ft.onOpen()
	assert.True(t, s.Snapshot().IsConnected)
}

func TestStoreSubscribersSeeCopies(t *testing.T) {
	s, ft := newTestStore(t)

	var seen GameState
	s.Subscribe(func(gs GameState) { seen = gs })

	ft.onNumberCalled(NumberCalledEvent{Number: 50})
	require.Equal(t, []int{50}, seen.CalledNumbers)

	seen.CalledNumbers[0] = 99
	assert.Equal(t, []int{50}, s.Snapshot().CalledNumbers)
}

func TestStoreOutOfRangeNumberIgnored(t *testing.T) {
	s, ft := newTestStore(t)

	ft.onNumberCalled(NumberCalledEvent{Number: 0})
	ft.onNumberCalled(NumberCalledEvent{Number: 76})
	ft.onNumberCalled(NumberCalledEvent{Number: -3})

	assert.Empty(t, s.Snapshot().CalledNumbers)
}
