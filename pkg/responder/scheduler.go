package responder

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSchedulerClosed is returned by Schedule after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// DeliverFunc receives the outcome of a scheduled reply. It is not called
// when the reply was cancelled.
type DeliverFunc func(reply string, err error)

type pending struct {
	id     uint64
	cancel context.CancelFunc
}

// Scheduler runs replies in the background. There is at most one pending
// reply per node: scheduling a new one cancels the previous one.
type Scheduler struct {
	responder Responder

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending map[string]pending
	nextID  uint64
	closed  bool
	wg      sync.WaitGroup
}

func NewScheduler(r Responder) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		responder: r,
		ctx:       ctx,
		cancel:    cancel,
		pending:   map[string]pending{},
	}
}

func (s *Scheduler) Schedule(nodeID, prompt string, deliver DeliverFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if p, ok := s.pending[nodeID]; ok {
		log.Debug().Str("node_id", nodeID).Msg("replacing pending reply")
		p.cancel()
	}

	s.nextID++
	id := s.nextID
	ctx, cancel := context.WithCancel(s.ctx)
	s.pending[nodeID] = pending{id: id, cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		reply, err := s.responder.Respond(ctx, prompt)

		s.mu.Lock()
		current, ok := s.pending[nodeID]
		stillCurrent := ok && current.id == id
		if stillCurrent {
			delete(s.pending, nodeID)
		}
		s.mu.Unlock()

		if !stillCurrent || ctx.Err() != nil {
			log.Debug().Str("node_id", nodeID).Msg("reply cancelled")
			return
		}
		deliver(reply, err)
	}()
	return nil
}

// Cancel drops the pending reply of a node. It reports whether there was one.
func (s *Scheduler) Cancel(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[nodeID]
	if !ok {
		return false
	}
	p.cancel()
	delete(s.pending, nodeID)
	return true
}

func (s *Scheduler) Pending(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[nodeID]
	return ok
}

// Len is the number of pending replies.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Wait blocks until every scheduled reply was delivered or cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels all pending replies and waits for their goroutines.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	s.pending = map[string]pending{}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
