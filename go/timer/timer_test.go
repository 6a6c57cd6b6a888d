package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	tm := New("test op")
	time.Sleep(5 * time.Millisecond)
	d := tm.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, "test op", tm.Name)
}
