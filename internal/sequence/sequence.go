package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing numbers. Each book owns its own
// instances, so tests can start every fixture from a known value.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued value.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

func (s *Sequencer) Reset(v uint64) {
	s.last.Store(v)
}
