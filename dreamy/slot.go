package dreamy

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-dreamy/dsp/core"
)

// Slot is a single-block hand-off between the capture and render callbacks.
// Offer overwrites whatever block is pending, so a slow consumer loses old
// blocks instead of blocking the producer or growing a queue.
type Slot struct {
	mu     sync.Mutex
	data   []float64
	filled bool
}

// NewSlot creates a hand-off slot for blocks of the given size.
func NewSlot(blockSize int) (*Slot, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("slot block size must be >= 1: %d", blockSize)
	}
	return &Slot{data: make([]float64, blockSize)}, nil
}

// BlockSize returns the slot's block size.
func (s *Slot) BlockSize() int { return len(s.data) }

// Offer stores a copy of block, replacing any pending block. Blocks longer
// than the slot are truncated; shorter ones are zero-padded.
func (s *Slot) Offer(block []float64) {
	s.mu.Lock()
	n := copy(s.data, block)
	core.Zero(s.data[n:])
	s.filled = true
	s.mu.Unlock()
}

// Take copies the pending block into dst and empties the slot. It reports
// whether a block was pending; dst is untouched otherwise.
func (s *Slot) Take(dst []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filled {
		return false
	}
	copy(dst, s.data)
	s.filled = false
	return true
}
