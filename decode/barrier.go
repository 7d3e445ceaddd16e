package decode

import "sync"

// barrier is a one-shot start barrier: Arrive blocks until the configured
// number of parties has arrived, then releases everyone at once. All writes
// made before Arrive are visible to every party after it returns.
type barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	arrived int
	open    bool
}

func newBarrier(parties int) *barrier {
	b := &barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Arrive registers this party and waits for the rest.
func (b *barrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.arrived++
	if b.arrived >= b.parties {
		b.open = true
		b.cond.Broadcast()
		return
	}
	for !b.open {
		b.cond.Wait()
	}
}
