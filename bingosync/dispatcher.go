package bingosync

// Dispatcher routes decoded server messages to registered callbacks.
type Dispatcher struct {
	onNumberCalled   func(NumberCalledEvent)
	onWinnerDeclared func(WinnerInfo)
	onGameReset      func()
	onGameState      func(GameSnapshot)
	onError          func(error)
}

func (d *Dispatcher) SetOnNumberCalled(fn func(NumberCalledEvent)) { d.onNumberCalled = fn }
func (d *Dispatcher) SetOnWinnerDeclared(fn func(WinnerInfo))      { d.onWinnerDeclared = fn }
func (d *Dispatcher) SetOnGameReset(fn func())                     { d.onGameReset = fn }
func (d *Dispatcher) SetOnGameState(fn func(GameSnapshot))         { d.onGameState = fn }
func (d *Dispatcher) SetOnError(fn func(error))                    { d.onError = fn }

// Dispatch decodes the envelope payload and invokes the matching callback.
// It reports whether the message type was recognized; unrecognized types
// cause no state change and are left to the caller to log.
func (d *Dispatcher) Dispatch(env Envelope) bool {
	switch env.Type {
	case MsgNumberCalled:
		var ev NumberCalledEvent
		if err := UnmarshalPayload(env.Payload, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal number_called payload", err))
			return true
		}
		if d.onNumberCalled != nil {
			d.onNumberCalled(ev)
		}
	case MsgWinnerDeclared:
		var ev WinnerInfo
		if err := UnmarshalPayload(env.Payload, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal winner_declared payload", err))
			return true
		}
		if d.onWinnerDeclared != nil {
			d.onWinnerDeclared(ev)
		}
	case MsgGameReset:
		if d.onGameReset != nil {
			d.onGameReset()
		}
	case MsgGameState:
		var ev GameSnapshot
		if err := UnmarshalPayload(env.Payload, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal game_state payload", err))
			return true
		}
		if d.onGameState != nil {
			d.onGameState(ev)
		}
	case MsgServerError:
		var ev ServerErrorEvent
		if err := UnmarshalPayload(env.Payload, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal error payload", err))
			return true
		}
		d.fireError(FromServerError(ev))
	default:
		return false
	}
	return true
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
