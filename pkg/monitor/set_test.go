package monitor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	sink, err := logging.NewSink(logging.Options{Level: logging.LevelError, Writer: io.Discard})
	require.NoError(t, err)
	return sink.Logger("test")
}

func TestSetAddRejectsDuplicates(t *testing.T) {
	s := NewSet()

	assert.True(t, s.Add("a", "Alpha", func() {}))
	assert.False(t, s.Add("a", "Alpha again", func() {}))
	assert.True(t, s.Add("b", "Beta", func() {}))

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))
	assert.Equal(t, []string{"Alpha", "Beta"}, s.Names())

	s.Remove("a")
	s.Remove("b")
}

func TestSetRemoveMakesIDReusable(t *testing.T) {
	s := NewSet()

	require.True(t, s.Add("a", "Alpha", func() {}))
	s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.True(t, s.Add("a", "Alpha", func() {}), "removed id can register again")

	s.Remove("a")
	s.Remove("a") // second remove is a no-op
	assert.Equal(t, 0, s.Len())
}

func TestSetCancelAll(t *testing.T) {
	s := NewSet()

	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	require.True(t, s.Add("a", "Alpha", cancelA))
	require.True(t, s.Add("b", "Beta", cancelB))

	s.CancelAll()
	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.ErrorIs(t, ctxB.Err(), context.Canceled)
	assert.Equal(t, 2, s.Len(), "cancel does not deregister; monitors remove themselves")

	s.Remove("a")
	s.Remove("b")
}

func TestSetWaitBlocksUntilAllRemoved(t *testing.T) {
	s := NewSet()
	require.True(t, s.Add("a", "Alpha", func() {}))
	require.True(t, s.Add("b", "Beta", func() {}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Remove("a")
		s.Remove("b")
	}()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after all monitors removed themselves")
	}
}
