package stream

import (
	"sync"

	"NovaSignal/internal/domain/models"
)

// Buffer accumulates live records for one logical feed, bounded in size.
// When full, the oldest record is evicted so the buffer always holds the
// most recent capacity records by arrival order.
type Buffer struct {
	mu       sync.Mutex
	buf      []models.CandleRecord
	head     int
	count    int
	capacity int

	totalAppended int64
	totalEvicted  int64
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalAppended int64
	TotalEvicted  int64
}

// NewBuffer creates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		buf:      make([]models.CandleRecord, capacity),
		capacity: capacity,
	}
}

// Append adds one record, evicting the oldest when the buffer is full.
func (b *Buffer) Append(rec models.CandleRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf[(b.head+b.count)%b.capacity] = rec
	if b.count == b.capacity {
		b.head = (b.head + 1) % b.capacity
		b.totalEvicted++
	} else {
		b.count++
	}
	b.totalAppended++
}

// Snapshot copies the buffered records in arrival order.
func (b *Buffer) Snapshot() []models.CandleRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.CandleRecord, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.head+i)%b.capacity]
	}
	return out
}

// Len returns the current number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Reset discards all buffered records, keeping counters.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

// Stats returns buffer counters.
func (b *Buffer) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      b.capacity,
		TotalAppended: b.totalAppended,
		TotalEvicted:  b.totalEvicted,
	}
}
