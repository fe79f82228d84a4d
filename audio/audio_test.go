package audio

import (
	"bytes"
	"testing"
)

func TestChunkQueueRechunks(t *testing.T) {
	q := newChunkQueue(4, 8)
	q.push([]byte{1, 2, 3})
	if _, ok := q.pop(); ok {
		t.Fatal("partial data should not yield a chunk")
	}
	q.push([]byte{4, 5, 6, 7, 8})
	first, ok := q.pop()
	if !ok || !bytes.Equal(first, []byte{1, 2, 3, 4}) {
		t.Fatalf("first chunk = %v", first)
	}
	second, ok := q.pop()
	if !ok || !bytes.Equal(second, []byte{5, 6, 7, 8}) {
		t.Fatalf("second chunk = %v", second)
	}
}

func TestChunkQueueDropsOldest(t *testing.T) {
	q := newChunkQueue(2, 2)
	q.push([]byte{1, 1, 2, 2, 3, 3})
	chunk, _ := q.pop()
	if !bytes.Equal(chunk, []byte{2, 2}) {
		t.Errorf("surviving chunk = %v, want the second", chunk)
	}
	if q.droppedCount() != 1 {
		t.Errorf("dropped = %d, want 1", q.droppedCount())
	}
}

func TestFakeSourceFeed(t *testing.T) {
	cfg := Config{SampleRate: 16000, Channels: 1, ChunkBytes: 4}
	src := NewFakeSource([]byte{1, 2, 3, 4}, cfg, false)

	if _, ok := src.NextChunk(); ok {
		t.Fatal("chunk before Start")
	}
	src.Start()
	chunk, ok := src.NextChunk()
	if !ok || !bytes.Equal(chunk, []byte{1, 2, 3, 4}) {
		t.Fatalf("chunk = %v", chunk)
	}
	// exhausted pcm reads as silence, not starvation
	chunk, ok = src.NextChunk()
	if !ok || !bytes.Equal(chunk, []byte{0, 0, 0, 0}) {
		t.Fatalf("post-pcm chunk = %v, want silence", chunk)
	}

	src.Feed([]byte{9, 9, 9, 9})
	chunk, _ = src.NextChunk()
	if !bytes.Equal(chunk, []byte{9, 9, 9, 9}) {
		t.Fatalf("fed chunk = %v", chunk)
	}
}

func TestFakeSinkOps(t *testing.T) {
	sink := NewFakeSink()
	sink.Start()
	sink.Write([]byte{1})
	sink.Stop()
	sink.Stop() // idempotent

	want := []string{"start", "write", "stop"}
	got := sink.Ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}
}

func TestToneLength(t *testing.T) {
	pcm := Tone(16000, 440, 0.25, 0.5, 10)
	if len(pcm) != 16000/4*2 {
		t.Errorf("tone length = %d bytes, want %d", len(pcm), 16000/4*2)
	}
}

func TestBytesPerSecond(t *testing.T) {
	c := Config{SampleRate: 16000, Channels: 1}
	if got := c.BytesPerSecond(); got != 32000 {
		t.Errorf("got %d, want 32000", got)
	}
}
