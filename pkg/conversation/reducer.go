package conversation

import (
	"time"

	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/summary"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// Reducer applies actions to a State. It has no side effects: every action is
// applied to a deep copy, and on failure the input state is returned as is.
type Reducer struct {
	now        func() time.Time
	newID      func() string
	summarizer summary.Summarizer
	layout     layout.Config
}

type ReducerOption func(*Reducer)

func WithClock(now func() time.Time) ReducerOption {
	return func(r *Reducer) {
		r.now = now
	}
}

func WithIDGenerator(newID func() string) ReducerOption {
	return func(r *Reducer) {
		r.newID = newID
	}
}

func WithSummarizer(s summary.Summarizer) ReducerOption {
	return func(r *Reducer) {
		r.summarizer = s
	}
}

// WithLayoutConfig sets the box size used to pick edge handles.
func WithLayoutConfig(cfg layout.Config) ReducerOption {
	return func(r *Reducer) {
		r.layout = cfg
	}
}

func NewReducer(options ...ReducerOption) *Reducer {
	ret := &Reducer{
		now:        time.Now,
		newID:      newUUID,
		summarizer: summary.NewHeuristic(),
		layout:     layout.DefaultConfig(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Reduce applies a single action and increments the version.
func (r *Reducer) Reduce(s State, a Action) (State, error) {
	if a == nil {
		return s, errors.Wrap(ErrInvalidOperation, "action is nil")
	}
	next := clone.Clone(s).(State)
	if err := a.Apply(r, &next); err != nil {
		return s, errors.Wrapf(err, "action %s", a.Name())
	}
	next.Version = s.Version + 1
	return next, nil
}

// ReduceAll applies actions in order and stops at the first failure,
// returning the state reached so far.
func (r *Reducer) ReduceAll(s State, actions ...Action) (State, error) {
	for _, a := range actions {
		next, err := r.Reduce(s, a)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

func (r *Reducer) timestamp() time.Time {
	return Timestamp(r.now())
}

func (r *Reducer) newMessage(role Role, content string) Message {
	return NewMessage(role, content, WithID(MessageID(r.newID())), WithTime(r.timestamp()))
}

func (r *Reducer) label(messages []Message) string {
	return r.summarizer.Summarize(Turns(messages))
}
