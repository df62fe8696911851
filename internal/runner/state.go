package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotInitialized is returned when work is submitted before a
	// successful Init.
	ErrEngineNotInitialized = errors.New("OCR engine not initialized")

	// ErrEngineBusy is returned when a request is submitted while another is
	// in flight. Requests are never queued inside the runner.
	ErrEngineBusy = errors.New("another OCR task is active")

	// ErrEngineDisposed is returned for any operation after Dispose.
	ErrEngineDisposed = errors.New("OCR engine disposed")

	// ErrStopped is the error carried by a result whose task was stopped.
	ErrStopped = errors.New("OCR stopped by user")

	// errIllegalTransition marks a trigger the current state cannot accept.
	errIllegalTransition = errors.New("illegal engine state transition")
)

// State is the lifecycle state of the runner's engine.
type State int

// Engine states.
const (
	StateUninitialized State = iota
	StateReady
	StateBusy
	StateStoppingRequested
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateStoppingRequested:
		return "stopping"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// inFlight reports whether a task is running in s.
func (s State) inFlight() bool {
	return s == StateBusy || s == StateStoppingRequested
}

type trigger int

const (
	trigInit trigger = iota
	trigInitFailed
	trigSubmit
	trigStop
	trigComplete
	trigDispose
)

func (t trigger) String() string {
	switch t {
	case trigInit:
		return "init"
	case trigInitFailed:
		return "init-failed"
	case trigSubmit:
		return "submit"
	case trigStop:
		return "stop"
	case trigComplete:
		return "complete"
	case trigDispose:
		return "dispose"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// next is the engine transition table. A dispose while a task is in flight
// yields StateStoppingRequested; the runner records the deferred disposal
// and applies it on completion.
func next(from State, t trigger) (State, error) {
	switch from {
	case StateUninitialized:
		switch t {
		case trigInit:
			return StateReady, nil
		case trigInitFailed, trigStop:
			return StateUninitialized, nil
		case trigSubmit:
			return from, ErrEngineNotInitialized
		case trigDispose:
			return StateDisposed, nil
		}

	case StateReady:
		switch t {
		case trigInit, trigStop:
			return StateReady, nil
		case trigInitFailed:
			return StateUninitialized, nil
		case trigSubmit:
			return StateBusy, nil
		case trigDispose:
			return StateDisposed, nil
		}

	case StateBusy, StateStoppingRequested:
		switch t {
		case trigInit, trigInitFailed, trigSubmit:
			return from, ErrEngineBusy
		case trigStop, trigDispose:
			return StateStoppingRequested, nil
		case trigComplete:
			return StateReady, nil
		}

	case StateDisposed:
		switch t {
		case trigStop:
			return StateDisposed, nil
		case trigComplete:
			// handled below as illegal
		default:
			return from, ErrEngineDisposed
		}
	}

	return from, fmt.Errorf("%w: %s on %s", errIllegalTransition, t, from)
}
