package snapshot

import (
	"context"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repository loads and saves the current tree under a single key.
type Repository struct {
	kv       KV
	key      string
	archiver *Archiver
}

type RepositoryOption func(*Repository)

func WithKey(key string) RepositoryOption {
	return func(r *Repository) {
		if key != "" {
			r.key = key
		}
	}
}

func WithArchiver(a *Archiver) RepositoryOption {
	return func(r *Repository) {
		r.archiver = a
	}
}

func NewRepository(kv KV, options ...RepositoryOption) *Repository {
	r := &Repository{kv: kv, key: DefaultKey}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Repository) Key() string {
	return r.key
}

// Load returns the stored tree. ErrSnapshotNotFound is returned when nothing
// was saved yet; snapshots that fail to decode wrap ErrPersistenceFailure.
func (r *Repository) Load(ctx context.Context) (conversation.Tree, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return conversation.Tree{}, err
	}
	return Decode(data)
}

// Save writes the tree and, when an archiver is configured, a dated copy.
// Archive failures are logged and do not fail the save.
func (r *Repository) Save(ctx context.Context, tree conversation.Tree) error {
	data, err := Encode(tree)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.key, data); err != nil {
		return errors.Wrap(err, "could not save tree")
	}
	if r.archiver != nil {
		path, err := r.archiver.Archive(tree, data)
		if err != nil {
			log.Warn().Err(err).Msg("could not archive snapshot")
		} else {
			log.Debug().Str("path", path).Msg("archived snapshot")
		}
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context) error {
	return r.kv.Delete(ctx, r.key)
}

func (r *Repository) Close() error {
	return r.kv.Close()
}
