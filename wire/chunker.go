package wire

// Chunker accumulates raw capture PCM and yields exactly chunk-sized slices.
// The API expects fixed-granularity audio payloads; a remainder shorter than
// one chunk is held back until more capture data arrives rather than wasting
// a round-trip on a short frame.
type Chunker struct {
	size int
	buf  []byte
}

func NewChunker(size int) *Chunker {
	return &Chunker{size: size, buf: make([]byte, 0, size*2)}
}

// Push appends pcm and returns every complete chunk now available.
func (c *Chunker) Push(pcm []byte) [][]byte {
	c.buf = append(c.buf, pcm...)
	var chunks [][]byte
	for len(c.buf) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.buf[:c.size])
		c.buf = c.buf[c.size:]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Flush drains the remainder at end of turn, zero-padded to a full chunk.
// Returns nil when nothing is buffered.
func (c *Chunker) Flush() []byte {
	if len(c.buf) == 0 {
		return nil
	}
	chunk := make([]byte, c.size)
	copy(chunk, c.buf)
	c.buf = c.buf[:0]
	return chunk
}

// Pending reports the buffered byte count awaiting a full chunk.
func (c *Chunker) Pending() int { return len(c.buf) }

// Reset discards any buffered remainder.
func (c *Chunker) Reset() { c.buf = c.buf[:0] }
