package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventRouter carries tree events from the store to the renderers over an
// in-process watermill pub/sub.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	buffer     int64
	sessionID  string

	mu             sync.Mutex
	sequenceNumber uint64
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

// WithVerbose routes the watermill logs to the global zerolog logger.
func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		if verbose {
			r.logger = NewWatermill(log.Logger)
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) EventRouterOption {
	return func(r *EventRouter) {
		r.sessionID = id
	}
}

// WithBuffer sets the size of every subscriber's output channel.
func WithBuffer(n int64) EventRouterOption {
	return func(r *EventRouter) {
		r.buffer = n
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
		buffer: 64,
	}

	for _, o := range options {
		o(ret)
	}
	if ret.sessionID == "" {
		ret.sessionID = NewSessionID()
	}

	// Publishing happens while the store holds its lock, so it must never
	// wait for a slow renderer.
	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            ret.buffer,
		BlockPublishUntilSubscriberAck: false,
	}, ret.logger)
	ret.Publisher = SessionPublisherDecorator{Publisher: goPubSub, SessionID: ret.sessionID}
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// Publish sends a tree event on TopicTree, numbering events in the order
// they are published.
func (e *EventRouter) Publish(ev TreeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", e.sequenceNumber))
	e.sequenceNumber++

	return e.Publisher.Publish(TopicTree, msg)
}

func (e *EventRouter) PublishBlind(ev TreeEvent) {
	if err := e.Publish(ev); err != nil {
		log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("failed to publish")
	}
}

// Subscribe returns a channel of decoded tree events that is closed when ctx
// is done or the router is closed. Events that fail to decode are skipped.
func (e *EventRouter) Subscribe(ctx context.Context) (<-chan TreeEvent, error) {
	messages, err := e.Subscriber.Subscribe(ctx, TopicTree)
	if err != nil {
		return nil, errors.Wrap(err, "could not subscribe to tree events")
	}
	ret := make(chan TreeEvent, e.buffer)
	go func() {
		defer close(ret)
		for msg := range messages {
			ev, err := decodeMessage(msg)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed tree event")
				continue
			}
			select {
			case ret <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ret, nil
}

// AddHandler registers a handler for tree events. Handlers must be added
// before Run.
func (e *EventRouter) AddHandler(name string, f func(TreeEvent) error) {
	e.router.AddNoPublisherHandler(name, TopicTree, e.Subscriber, func(msg *message.Message) error {
		ev, err := decodeMessage(msg)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.UUID).Msg("failed to parse tree event")
			return nil
		}
		return f(ev)
	})
}

// DumpEvents is a handler that logs every event, used by --log-events.
func DumpEvents(ev TreeEvent) error {
	l := log.Debug()
	if ev.Failed() {
		l = log.Warn().Str("error", ev.Error)
	}
	l.Str("event_type", string(ev.Type)).
		Str("session_id", ev.SessionID).
		Str("active_node_id", ev.ActiveNodeID).
		Int("node_count", ev.NodeCount).
		Int64("version", ev.Version).
		Msg("tree event")
	return nil
}

// Run blocks until ctx is cancelled or the router is closed.
func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

func (e *EventRouter) SessionID() string {
	return e.sessionID
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) IsRunning() bool {
	return e.router.IsRunning()
}

func (e *EventRouter) Close() error {
	log.Debug().Msg("Closing publisher")
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close pubsub")
		// not returning just yet
	}

	log.Debug().Msg("Closing router")
	if err := e.router.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close router")
	}
	return nil
}
