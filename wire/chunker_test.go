package wire

import (
	"bytes"
	"testing"
)

func TestChunkerExactMultiple(t *testing.T) {
	c := NewChunker(4)
	chunks := c.Push([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !bytes.Equal(chunks[0], []byte{1, 2, 3, 4}) || !bytes.Equal(chunks[1], []byte{5, 6, 7, 8}) {
		t.Errorf("chunks = %v", chunks)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0", c.Pending())
	}
}

func TestChunkerBuffersRemainder(t *testing.T) {
	c := NewChunker(4)
	if chunks := c.Push([]byte{1, 2, 3}); len(chunks) != 0 {
		t.Fatalf("short push should emit nothing, got %v", chunks)
	}
	if c.Pending() != 3 {
		t.Errorf("pending = %d, want 3", c.Pending())
	}

	chunks := c.Push([]byte{4, 5})
	if len(chunks) != 1 || !bytes.Equal(chunks[0], []byte{1, 2, 3, 4}) {
		t.Fatalf("chunks = %v", chunks)
	}
	if c.Pending() != 1 {
		t.Errorf("pending = %d, want 1", c.Pending())
	}
}

func TestChunkerFlushPads(t *testing.T) {
	c := NewChunker(4)
	c.Push([]byte{9, 9})

	tail := c.Flush()
	if !bytes.Equal(tail, []byte{9, 9, 0, 0}) {
		t.Errorf("tail = %v, want padded to full chunk", tail)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after flush", c.Pending())
	}
}

func TestChunkerFlushEmpty(t *testing.T) {
	c := NewChunker(4)
	if tail := c.Flush(); tail != nil {
		t.Errorf("empty flush = %v, want nil", tail)
	}
}

func TestChunkerReset(t *testing.T) {
	c := NewChunker(4)
	c.Push([]byte{1, 2, 3})
	c.Reset()
	if c.Pending() != 0 {
		t.Errorf("pending = %d after reset", c.Pending())
	}
	// stale bytes must not leak into the next utterance
	chunks := c.Push([]byte{5, 6, 7, 8})
	if len(chunks) != 1 || !bytes.Equal(chunks[0], []byte{5, 6, 7, 8}) {
		t.Errorf("chunks = %v", chunks)
	}
}
