package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeChannel is a scriptable in-memory Channel for tests. Tests push
// server frames with Push, inspect client frames via Sent or react to them
// through OnSend, and simulate connection loss with Break.
type FakeChannel struct {
	// OnSend, when set, is invoked synchronously with every frame the
	// client sends. Set it before the session starts.
	OnSend func(data []byte)

	// FailOpens makes the first N Open calls fail with ConnectError.
	FailOpens int

	mu       sync.Mutex
	opens    int
	sent     [][]byte
	incoming chan []byte
	broken   chan struct{}
	opened   bool
}

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{incoming: make(chan []byte, 256)}
}

func (f *FakeChannel) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.opens <= f.FailOpens {
		return &ConnectError{URL: "fake", Err: errors.New("scripted open failure")}
	}
	f.broken = make(chan struct{})
	f.opened = true
	return nil
}

// Opens returns how many times Open has been called.
func (f *FakeChannel) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *FakeChannel) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	if !f.opened {
		f.mu.Unlock()
		return fmt.Errorf("send: %w", ErrClosed)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(cp)
	}
	return nil
}

// Sent returns a snapshot of every frame sent so far.
func (f *FakeChannel) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// Push delivers a server frame to the client.
func (f *FakeChannel) Push(data []byte) {
	f.incoming <- data
}

func (f *FakeChannel) Receive(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	broken := f.broken
	opened := f.opened
	f.mu.Unlock()
	if !opened {
		return nil, fmt.Errorf("receive: %w", ErrClosed)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-broken:
		return nil, fmt.Errorf("receive: %w", ErrClosed)
	case data := <-f.incoming:
		return data, nil
	}
}

// Break simulates losing the connection: pending and future Receive calls
// fail with ErrClosed.
func (f *FakeChannel) Break() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.opened {
		f.opened = false
		close(f.broken)
	}
}

func (f *FakeChannel) Close() error {
	f.Break()
	return nil
}
