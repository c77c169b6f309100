package payroll

import "sync"

// cycleLocks keeps one run per cycle inside this process. The advisory lock taken
// by the repository covers other processes.
type cycleLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newCycleLocks() *cycleLocks {
	return &cycleLocks{held: make(map[string]struct{})}
}

func (l *cycleLocks) tryAcquire(cycleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[cycleID]; ok {
		return false
	}
	l.held[cycleID] = struct{}{}
	return true
}

func (l *cycleLocks) release(cycleID string) {
	l.mu.Lock()
	delete(l.held, cycleID)
	l.mu.Unlock()
}

func (l *cycleLocks) isHeld(cycleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[cycleID]
	return ok
}
