package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/events"
	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/settings"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/go-go-golems/chatpath/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// App bundles everything a command needs: the settings, the repository the
// tree is stored in, the event router and the store on top of them.
type App struct {
	Settings *settings.Settings
	Repo     *snapshot.Repository
	Router   *events.EventRouter
	Store    *store.Store

	logEvents bool
}

func openApp() (*App, error) {
	s, err := settings.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	repo, err := s.OpenRepository()
	if err != nil {
		return nil, err
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	ret := &App{
		Settings:  s,
		Repo:      repo,
		Router:    router,
		logEvents: viper.GetBool("log-events"),
	}
	ret.Store = store.New(
		store.WithEngine(layout.NewEngine(s.Layout)),
		store.WithRepository(repo),
		store.WithPublisher(router),
		store.WithResponder(s.NewResponder()),
	)
	if ret.logEvents {
		router.AddHandler("dump-events", events.DumpEvents)
	}
	log.Debug().
		Str("session_id", router.SessionID()).
		Str("backend", s.Storage.Backend).
		Str("key", repo.Key()).
		Msg("opened store")

	return ret, nil
}

// Run loads the stored tree and calls f while the event router runs in the
// background. Everything is closed once f returns.
func (a *App) Run(ctx context.Context, f func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	if a.logEvents {
		eg.Go(func() error {
			return a.Router.Run(ctx)
		})
		select {
		case <-a.Router.Running():
		case <-ctx.Done():
		}
	}

	eg.Go(func() error {
		defer cancel()
		if _, err := a.Store.Load(ctx); err != nil {
			return err
		}
		return f(ctx)
	})

	err := eg.Wait()
	if closeErr := a.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close store")
	}
	if err := a.Router.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close event router")
	}
	return a.Repo.Close()
}

// resolveNode accepts a full node id or a unique prefix. An empty argument
// means the active node.
func resolveNode(state conversation.State, arg string) (*conversation.Node, error) {
	if strings.TrimSpace(arg) == "" {
		n, ok := state.ActiveNode()
		if !ok {
			return nil, errors.Wrap(conversation.ErrNotFound, "no active node")
		}
		return n, nil
	}
	id, err := state.Tree.FindByPrefix(arg)
	if err != nil {
		return nil, err
	}
	n, _ := state.Tree.Node(id)
	return n, nil
}

// resolveMessage accepts a full message id or a unique prefix within n.
func resolveMessage(n *conversation.Node, arg string) (conversation.Message, error) {
	var matches []conversation.Message
	for _, m := range n.Messages {
		if string(m.ID) == arg {
			return m, nil
		}
		if arg != "" && strings.HasPrefix(string(m.ID), arg) {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return conversation.Message{}, errors.Wrapf(conversation.ErrNotFound, "message %s in node %s", arg, n.ID)
	case 1:
		return matches[0], nil
	default:
		return conversation.Message{}, errors.Wrapf(conversation.ErrInvalidOperation, "message prefix %s is ambiguous", arg)
	}
}
