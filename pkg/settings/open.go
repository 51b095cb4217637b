package settings

import (
	"path/filepath"

	"github.com/go-go-golems/chatpath/pkg/responder"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/pkg/errors"
)

// OpenKV opens the configured storage backend.
func (s *Settings) OpenKV() (snapshot.KV, error) {
	switch s.Storage.Backend {
	case "memory":
		return snapshot.NewMemoryKV(), nil
	case "file", "":
		return snapshot.NewFileKV(s.Storage.Dir)
	case "sqlite":
		dsn := s.Storage.DSN
		if dsn == "" {
			var err error
			dsn, err = snapshot.SQLiteDSNForFile(filepath.Join(s.Storage.Dir, "chatpath.db"))
			if err != nil {
				return nil, err
			}
		}
		return snapshot.NewSQLiteKV(dsn)
	default:
		return nil, errors.Errorf("unknown storage backend %q", s.Storage.Backend)
	}
}

// OpenRepository opens the storage backend and wraps it with the configured
// key and archiver.
func (s *Settings) OpenRepository() (*snapshot.Repository, error) {
	kv, err := s.OpenKV()
	if err != nil {
		return nil, err
	}
	options := []snapshot.RepositoryOption{snapshot.WithKey(s.Storage.Key)}
	if s.Autosave.Enabled {
		archiver, err := snapshot.NewArchiver(s.Autosave.Dir, s.Autosave.Format)
		if err != nil {
			_ = kv.Close()
			return nil, err
		}
		options = append(options, snapshot.WithArchiver(archiver))
	}
	return snapshot.NewRepository(kv, options...), nil
}

func (s *Settings) NewResponder() *responder.Mock {
	options := []responder.MockOption{responder.WithDelay(s.Responder.Delay)}
	if s.Responder.Seed != 0 {
		options = append(options, responder.WithSeed(s.Responder.Seed))
	}
	return responder.NewMock(options...)
}
