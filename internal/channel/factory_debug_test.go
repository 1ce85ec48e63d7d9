//go:build debug

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DebugIsUnbuffered(t *testing.T) {
	c := New[int](16)
	assert.False(t, c.TrySend(1), "no receiver is waiting")
	assert.Equal(t, 0, c.Len())
	c.Close()
}
