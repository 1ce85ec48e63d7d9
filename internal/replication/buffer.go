// Package replication packs authoritative snapshots on the authority and
// reconstructs a smoothed, delayed display state on the other peer.
package replication

import (
	"sort"

	"github.com/tandemdrive/tandem/pkg/core"
)

// Buffer holds received snapshots in ascending timestamp order, bounded by
// count and by time horizon.
type Buffer struct {
	items      []core.Snapshot
	maxCount   int
	maxHorizon float64
}

// NewBuffer creates a buffer keeping at most maxCount snapshots no older
// than maxHorizon seconds behind the newest. Zero disables a bound.
func NewBuffer(maxCount int, maxHorizon float64) *Buffer {
	return &Buffer{maxCount: maxCount, maxHorizon: maxHorizon}
}

// Insert places s at its timestamp position. A snapshot with an existing
// timestamp replaces the stored one. Old entries are then pruned.
func (b *Buffer) Insert(s core.Snapshot) {
	i := sort.Search(len(b.items), func(i int) bool {
		return b.items[i].Timestamp >= s.Timestamp
	})
	if i < len(b.items) && b.items[i].Timestamp == s.Timestamp {
		b.items[i] = s
	} else {
		b.items = append(b.items, core.Snapshot{})
		copy(b.items[i+1:], b.items[i:])
		b.items[i] = s
	}
	b.prune()
}

func (b *Buffer) prune() {
	drop := 0
	if b.maxHorizon > 0 && len(b.items) > 0 {
		cutoff := b.items[len(b.items)-1].Timestamp - b.maxHorizon
		for drop < len(b.items)-1 && b.items[drop].Timestamp < cutoff {
			drop++
		}
	}
	if b.maxCount > 0 && len(b.items)-drop > b.maxCount {
		drop = len(b.items) - b.maxCount
	}
	if drop > 0 {
		b.items = append(b.items[:0], b.items[drop:]...)
	}
}

// Len returns the number of buffered snapshots.
func (b *Buffer) Len() int { return len(b.items) }

// Clear drops every snapshot.
func (b *Buffer) Clear() { b.items = b.items[:0] }

// Snapshots returns a copy of the buffer in timestamp order.
func (b *Buffer) Snapshots() []core.Snapshot {
	out := make([]core.Snapshot, len(b.items))
	copy(out, b.items)
	return out
}

// Oldest returns the earliest snapshot.
func (b *Buffer) Oldest() (core.Snapshot, bool) {
	if len(b.items) == 0 {
		return core.Snapshot{}, false
	}
	return b.items[0], true
}

// Newest returns the latest snapshot.
func (b *Buffer) Newest() (core.Snapshot, bool) {
	if len(b.items) == 0 {
		return core.Snapshot{}, false
	}
	return b.items[len(b.items)-1], true
}

// bracket returns the pair with a.Timestamp <= t < b.Timestamp. t must lie
// inside the buffered range.
func (b *Buffer) bracket(t float64) (core.Snapshot, core.Snapshot) {
	i := sort.Search(len(b.items), func(i int) bool {
		return b.items[i].Timestamp > t
	})
	return b.items[i-1], b.items[i]
}
