package replication

import (
	"context"
	"fmt"

	"github.com/tandemdrive/tandem/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

// Sender hands a snapshot to the unreliable broadcast channel.
type Sender interface {
	Broadcast(core.Snapshot) error
}

// Broadcaster packs authoritative state into snapshots at the send cadence.
type Broadcaster struct {
	interval float64
	sender   Sender
	last     float64
	sent     bool

	emitted metric.Int64Counter
}

// NewBroadcaster creates a Broadcaster sending at sendRate snapshots per
// second. A non-positive rate sends on every Emit.
func NewBroadcaster(sendRate float64, sender Sender) (*Broadcaster, error) {
	b := &Broadcaster{sender: sender}
	if sendRate > 0 {
		b.interval = 1 / sendRate
	}

	var err error
	b.emitted, err = meter().Int64Counter(
		"replication.snapshots.sent",
		metric.WithDescription("Snapshots broadcast by the authority"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}
	return b, nil
}

// Emit broadcasts state stamped with now when the send interval has
// elapsed. It reports whether a snapshot was sent.
func (b *Broadcaster) Emit(now float64, state core.VehicleState) (bool, error) {
	if b.sent && now-b.last < b.interval-1e-9 {
		return false, nil
	}
	b.last = now
	b.sent = true
	if err := b.sender.Broadcast(core.NewSnapshot(now, state)); err != nil {
		return false, fmt.Errorf("broadcasting snapshot: %w", err)
	}
	b.emitted.Add(context.Background(), 1)
	return true, nil
}

// Reset makes the next Emit send immediately.
func (b *Broadcaster) Reset() { b.sent = false }
