package responder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRespond(t *testing.T) {
	m := NewMock(WithDelay(0), WithSeed(1))
	for i := 0; i < 20; i++ {
		reply, err := m.Respond(context.Background(), "hello")
		require.NoError(t, err)
		assert.Contains(t, Replies, reply)
	}
}

func TestMockDeterministicWithSeed(t *testing.T) {
	a := NewMock(WithDelay(0), WithSeed(42))
	b := NewMock(WithDelay(0), WithSeed(42))
	for i := 0; i < 5; i++ {
		ra, _ := a.Respond(context.Background(), "")
		rb, _ := b.Respond(context.Background(), "")
		assert.Equal(t, ra, rb)
	}
}

func TestMockHonoursContext(t *testing.T) {
	m := NewMock(WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Respond(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)

	m = NewMock(WithDelay(0))
	_, err = m.Respond(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

type collector struct {
	mu      sync.Mutex
	replies []string
}

func (c *collector) deliver(reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.replies = append(c.replies, reply)
	}
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.replies...)
}

func TestSchedulerDelivers(t *testing.T) {
	s := NewScheduler(NewMock(WithDelay(0), WithReplies("pong")))
	defer s.Close()

	c := &collector{}
	require.NoError(t, s.Schedule("a", "ping", c.deliver))
	require.NoError(t, s.Schedule("b", "ping", c.deliver))
	s.Wait()

	assert.Equal(t, []string{"pong", "pong"}, c.get())
	assert.False(t, s.Pending("a"))
	assert.False(t, s.Pending("b"))
	assert.Equal(t, 0, s.Len())
}

// blocking answers with the prompt once released.
func blocking(release <-chan struct{}) Responder {
	return Func(func(ctx context.Context, prompt string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-release:
			return prompt, nil
		}
	})
}

func TestSchedulerReplacesPendingReply(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(blocking(release))
	defer s.Close()

	c := &collector{}
	require.NoError(t, s.Schedule("a", "first", c.deliver))
	require.NoError(t, s.Schedule("a", "second", c.deliver))
	assert.True(t, s.Pending("a"))

	close(release)
	s.Wait()
	assert.Equal(t, []string{"second"}, c.get())
}

func TestSchedulerCancel(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(blocking(release))
	defer s.Close()

	c := &collector{}
	require.NoError(t, s.Schedule("a", "first", c.deliver))
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.False(t, s.Pending("a"))

	s.Wait()
	close(release)
	assert.Empty(t, c.get())
}

func TestSchedulerClose(t *testing.T) {
	s := NewScheduler(blocking(make(chan struct{})))
	c := &collector{}
	require.NoError(t, s.Schedule("a", "first", c.deliver))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Empty(t, c.get())
	assert.ErrorIs(t, s.Schedule("a", "again", c.deliver), ErrSchedulerClosed)
}
