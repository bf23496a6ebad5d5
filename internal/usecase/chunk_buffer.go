package usecase

import "sync"

// chunkBuffer accumulates captured chunks in arrival order until flushed.
type chunkBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	totalSize int
}

func newChunkBuffer() *chunkBuffer {
	return &chunkBuffer{}
}

// Append copies a chunk into the buffer. Empty chunks are discarded.
func (b *chunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	copied := append([]byte(nil), chunk...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, copied)
	b.totalSize += len(copied)
}

// Flush concatenates all chunks in order and clears the buffer.
func (b *chunkBuffer) Flush() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return nil
	}

	result := make([]byte, 0, b.totalSize)
	for _, chunk := range b.chunks {
		result = append(result, chunk...)
	}
	b.chunks = nil
	b.totalSize = 0
	return result
}

// Clear empties the buffer without returning data.
func (b *chunkBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.totalSize = 0
}

func (b *chunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

func (b *chunkBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}
