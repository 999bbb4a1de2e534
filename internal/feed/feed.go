// Package feed delivers joint-state snapshots from the robot transport to the
// control loop.
//
// A [Mailbox] keeps only the newest snapshot: publishing never blocks and
// overwrites an unconsumed snapshot, and readers either block in [Mailbox.Next]
// until a snapshot newer than the last one they consumed arrives, or poll with
// [Mailbox.TryNext].
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/scarakin/internal/kin"
)

// ErrClosed is returned by reads after the feed has been closed.
var ErrClosed = errors.New("feed: closed")

// Snapshot is one consistent joint-state reading. It must not be modified after
// it is published.
type Snapshot struct {
	Seq        uint64
	Stamp      time.Time
	Names      []string
	Positions  []float64
	Velocities []float64 // empty when the transport reports positions only
}

// HasVelocities reports whether velocities were delivered.
func (s Snapshot) HasVelocities() bool {
	return len(s.Velocities) > 0
}

// JointState returns positions followed by velocities when present.
func (s Snapshot) JointState() []float64 {
	out := make([]float64, 0, len(s.Positions)+len(s.Velocities))
	out = append(out, s.Positions...)
	return append(out, s.Velocities...)
}

// Source is anything that hands out one fresh snapshot per call.
type Source interface {
	Next(ctx context.Context) (Snapshot, error)
}

// Reorder permutes a snapshot whose names are a permutation of order into that
// order. Snapshots with a different name set are rejected.
func Reorder(s Snapshot, order []string) (Snapshot, error) {
	if len(s.Names) != len(order) || len(s.Positions) != len(s.Names) {
		return Snapshot{}, fmt.Errorf("%w: snapshot has %d names and %d positions, want %d joints",
			kin.ErrJointOrderMismatch, len(s.Names), len(s.Positions), len(order))
	}
	if len(s.Velocities) != 0 && len(s.Velocities) != len(s.Names) {
		return Snapshot{}, fmt.Errorf("%w: snapshot has %d velocities for %d joints",
			kin.ErrJointOrderMismatch, len(s.Velocities), len(s.Names))
	}

	at := make(map[string]int, len(s.Names))
	for i, n := range s.Names {
		at[n] = i
	}

	out := s
	out.Names = make([]string, len(order))
	out.Positions = make([]float64, len(order))
	if len(s.Velocities) > 0 {
		out.Velocities = make([]float64, len(order))
	}
	for i, name := range order {
		j, ok := at[name]
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: joint %q missing from snapshot", kin.ErrJointOrderMismatch, name)
		}
		out.Names[i] = name
		out.Positions[i] = s.Positions[j]
		if len(s.Velocities) > 0 {
			out.Velocities[i] = s.Velocities[j]
		}
	}
	return out, nil
}
