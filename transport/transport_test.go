package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsLost(t *testing.T) {
	if !IsLost(ErrClosed) {
		t.Error("ErrClosed should read as lost")
	}
	wrapped := &ConnectError{URL: "wss://x", Err: errors.New("refused")}
	if !IsLost(wrapped) {
		t.Error("ConnectError should read as lost")
	}
	if IsLost(errors.New("unrelated")) {
		t.Error("arbitrary error should not read as lost")
	}
	if IsLost(nil) {
		t.Error("nil should not read as lost")
	}
}

func TestConnectErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &ConnectError{URL: "wss://svc/voice", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("unwrap lost the cause")
	}
}

func TestFakeChannelBreakFailsReceive(t *testing.T) {
	ch := NewFakeChannel()
	if err := ch.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := ch.Receive(context.Background())
		done <- err
	}()
	ch.Break()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not fail after break")
	}
}

func TestFakeChannelReopens(t *testing.T) {
	ch := NewFakeChannel()
	ch.FailOpens = 1
	if err := ch.Open(context.Background()); err == nil {
		t.Fatal("first open should fail")
	}
	if err := ch.Open(context.Background()); err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	if err := ch.Send(context.Background(), []byte(`{}`)); err != nil {
		t.Errorf("send after reopen: %v", err)
	}
	if ch.Opens() != 2 {
		t.Errorf("opens = %d, want 2", ch.Opens())
	}
}
