package dbus

import (
	"testing"
	"time"
)

func TestStateMachine_GetSet(t *testing.T) {
	m := newStateMachine(StateConnecting)
	if m.Get() != StateConnecting {
		t.Fatalf("expected StateConnecting, got %s", m.Get())
	}
	m.Set(StateConnected)
	if m.Get() != StateConnected {
		t.Fatalf("expected StateConnected, got %s", m.Get())
	}
}

func TestStateMachine_WaitChanWakesOnTransition(t *testing.T) {
	m := newStateMachine(StateConnecting)
	_, changed := m.WaitChan()

	done := make(chan struct{})
	go func() {
		<-changed
		close(done)
	}()

	m.Set(StateConnected)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitChan did not observe the state transition")
	}
}

func TestStateMachine_SetSameStateIsNoop(t *testing.T) {
	m := newStateMachine(StateConnected)
	_, changed := m.WaitChan()
	m.Set(StateConnected)

	select {
	case <-changed:
		t.Fatal("setting the same state should not notify waiters")
	default:
	}
}

func TestState_String(t *testing.T) {
	if StateFailed.String() != "FAILED" {
		t.Fatalf("unexpected string for StateFailed: %s", StateFailed.String())
	}
	if State(999).String() != "UNKNOWN" {
		t.Fatalf("unexpected string for unknown state: %s", State(999).String())
	}
}
