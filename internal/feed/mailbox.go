package feed

import (
	"context"
	"sync"
	"time"
)

// Stats is a point-in-time view of mailbox activity.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64 // snapshots overwritten before anyone read them
	LastSeq   uint64
	LastAt    time.Time
}

// Mailbox is a single-slot, latest-value feed. It is safe for concurrent use by
// one or more publishers and a single reader.
type Mailbox struct {
	mu       sync.Mutex
	latest   *Snapshot
	consumed uint64 // seq of the last snapshot handed to the reader
	notify   chan struct{}
	closed   bool
	stats    Stats
	order    []string
}

// NewMailbox returns an empty mailbox. When order is non-empty every published
// snapshot is reordered into it; snapshots that cannot be reordered are kept
// unchanged so the reader sees the mismatch.
func NewMailbox(order []string) *Mailbox {
	o := make([]string, len(order))
	copy(o, order)
	return &Mailbox{notify: make(chan struct{}), order: o}
}

// Publish stores s as the newest snapshot and wakes a waiting reader. It never
// blocks. Seq is assigned by the mailbox.
func (m *Mailbox) Publish(s Snapshot) {
	if len(m.order) > 0 {
		if r, err := Reorder(s, m.order); err == nil {
			s = r
		}
	}
	if s.Stamp.IsZero() {
		s.Stamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	if m.latest != nil && m.latest.Seq > m.consumed {
		m.stats.Dropped++
	}
	m.stats.Published++
	s.Seq = m.stats.Published
	m.latest = &s
	m.stats.LastSeq = s.Seq
	m.stats.LastAt = s.Stamp

	close(m.notify)
	m.notify = make(chan struct{})
}

// Next blocks until a snapshot newer than the last consumed one is available,
// the context ends, or the mailbox is closed.
func (m *Mailbox) Next(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return Snapshot{}, ErrClosed
		}
		if s, ok := m.takeLocked(); ok {
			m.mu.Unlock()
			return s, nil
		}
		wait := m.notify
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-wait:
		}
	}
}

// TryNext returns a fresh snapshot if one is waiting, without blocking.
func (m *Mailbox) TryNext() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, false
	}
	return m.takeLocked()
}

// Latest returns the newest snapshot without consuming it.
func (m *Mailbox) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return Snapshot{}, false
	}
	return *m.latest, true
}

// Close wakes any reader; subsequent reads return ErrClosed and publishes are
// dropped. Close is idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.notify)
}

// Stats returns a snapshot of the counters.
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Mailbox) takeLocked() (Snapshot, bool) {
	if m.latest == nil || m.latest.Seq <= m.consumed {
		return Snapshot{}, false
	}
	m.consumed = m.latest.Seq
	m.stats.Consumed++
	return *m.latest, true
}
