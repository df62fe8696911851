package runner

import (
	"errors"
	"testing"
)

func TestNext_Table(t *testing.T) {
	tests := []struct {
		from    State
		trig    trigger
		want    State
		wantErr error
	}{
		{StateUninitialized, trigInit, StateReady, nil},
		{StateUninitialized, trigInitFailed, StateUninitialized, nil},
		{StateUninitialized, trigSubmit, StateUninitialized, ErrEngineNotInitialized},
		{StateUninitialized, trigStop, StateUninitialized, nil},
		{StateUninitialized, trigComplete, StateUninitialized, errIllegalTransition},
		{StateUninitialized, trigDispose, StateDisposed, nil},

		{StateReady, trigInit, StateReady, nil},
		{StateReady, trigInitFailed, StateUninitialized, nil},
		{StateReady, trigSubmit, StateBusy, nil},
		{StateReady, trigStop, StateReady, nil},
		{StateReady, trigComplete, StateReady, errIllegalTransition},
		{StateReady, trigDispose, StateDisposed, nil},

		{StateBusy, trigInit, StateBusy, ErrEngineBusy},
		{StateBusy, trigSubmit, StateBusy, ErrEngineBusy},
		{StateBusy, trigStop, StateStoppingRequested, nil},
		{StateBusy, trigComplete, StateReady, nil},
		{StateBusy, trigDispose, StateStoppingRequested, nil},

		{StateStoppingRequested, trigSubmit, StateStoppingRequested, ErrEngineBusy},
		{StateStoppingRequested, trigStop, StateStoppingRequested, nil},
		{StateStoppingRequested, trigComplete, StateReady, nil},
		{StateStoppingRequested, trigDispose, StateStoppingRequested, nil},

		{StateDisposed, trigInit, StateDisposed, ErrEngineDisposed},
		{StateDisposed, trigSubmit, StateDisposed, ErrEngineDisposed},
		{StateDisposed, trigStop, StateDisposed, nil},
		{StateDisposed, trigComplete, StateDisposed, errIllegalTransition},
		{StateDisposed, trigDispose, StateDisposed, ErrEngineDisposed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.trig.String(), func(t *testing.T) {
			got, err := next(tt.from, tt.trig)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := StateStoppingRequested.String(); got != "stopping" {
		t.Errorf("String() = %q", got)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("String() = %q", got)
	}
}
