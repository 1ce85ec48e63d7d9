//go:build !debug

package channel

// New returns the outbound queue used by relay and client connections:
// a buffered channel of size messages, so a slow socket drops frames
// through TrySend instead of stalling the peer tick.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
