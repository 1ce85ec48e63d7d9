//go:build debug

package channel

// New ignores size under the debug tag and returns an unbuffered channel.
// Every TrySend then fails unless the writer goroutine is parked on
// Receive, which surfaces connection backpressure in relay logs.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
