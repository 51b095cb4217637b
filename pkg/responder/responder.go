// Package responder produces the assistant replies of a conversation.
//
// There is no model behind it: Mock picks one of a handful of canned
// follow-up questions after a delay. Scheduler runs those replies in the
// background, one pending reply per node.
package responder

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// Replies are the canned answers of Mock.
var Replies = []string{
	"That's an interesting perspective! Can you tell me more about what led you to that conclusion?",
	"I see what you're getting at. How do you think this relates to what we discussed earlier?",
	"That's a great point. What would you say are the main implications of this?",
	"Fascinating! I'd love to explore this further. What aspects would you like to dive deeper into?",
	"You raise a compelling question. Let me think about the different angles we could consider...",
}

const DefaultDelay = time.Second

type Mock struct {
	delay   time.Duration
	replies []string

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Responder = (*Mock)(nil)

type MockOption func(*Mock)

func WithDelay(d time.Duration) MockOption {
	return func(m *Mock) {
		m.delay = d
	}
}

func WithSeed(seed int64) MockOption {
	return func(m *Mock) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

func WithReplies(replies ...string) MockOption {
	return func(m *Mock) {
		if len(replies) > 0 {
			m.replies = replies
		}
	}
}

func NewMock(options ...MockOption) *Mock {
	ret := &Mock{
		delay:   DefaultDelay,
		replies: Replies,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Respond waits for the configured delay and returns a random canned reply.
// The prompt is ignored.
func (m *Mock) Respond(ctx context.Context, _ string) (string, error) {
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replies[m.rng.Intn(len(m.replies))], nil
}

// Func adapts a function to the Responder interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Respond(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
