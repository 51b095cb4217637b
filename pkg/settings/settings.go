// Package settings holds the configuration of chatpath and turns it into
// the collaborators the store needs.
package settings

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/responder"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type StorageSettings struct {
	Backend string `mapstructure:"backend" validate:"oneof=file sqlite memory"`
	Dir     string `mapstructure:"dir"`
	DSN     string `mapstructure:"dsn"`
	Key     string `mapstructure:"key" validate:"required"`
}

type AutosaveSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Format  string `mapstructure:"format"`
}

type ResponderSettings struct {
	Delay time.Duration `mapstructure:"delay" validate:"min=0"`
	// Seed makes replies reproducible. Zero picks a random seed.
	Seed int64 `mapstructure:"seed"`
}

type TokenSettings struct {
	Encoding string `mapstructure:"encoding" validate:"required"`
}

type Settings struct {
	Storage   StorageSettings   `mapstructure:"storage"`
	Autosave  AutosaveSettings  `mapstructure:"autosave"`
	Layout    layout.Config     `mapstructure:"layout"`
	Responder ResponderSettings `mapstructure:"responder"`
	Tokens    TokenSettings     `mapstructure:"tokens"`
}

// DataDir is where snapshots live unless storage.dir says otherwise.
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".chatpath"
	}
	return filepath.Join(dir, "chatpath")
}

func Default() *Settings {
	return &Settings{
		Storage: StorageSettings{
			Backend: "file",
			Dir:     DataDir(),
			Key:     snapshot.DefaultKey,
		},
		Autosave: AutosaveSettings{
			Dir:    filepath.Join(DataDir(), "history"),
			Format: snapshot.DefaultArchiveFormat,
		},
		Layout: layout.DefaultConfig(),
		Responder: ResponderSettings{
			Delay: responder.DefaultDelay,
		},
		Tokens: TokenSettings{
			Encoding: "cl100k_base",
		},
	}
}

// SetDefaults registers every default value with v, so that environment
// variables are picked up by Unmarshal even when no file mentions the key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("autosave.enabled", d.Autosave.Enabled)
	v.SetDefault("autosave.dir", d.Autosave.Dir)
	v.SetDefault("autosave.format", d.Autosave.Format)
	v.SetDefault("layout.node-width", d.Layout.NodeWidth)
	v.SetDefault("layout.node-height", d.Layout.NodeHeight)
	v.SetDefault("layout.spacing", d.Layout.Spacing)
	v.SetDefault("layout.node-sep", d.Layout.NodeSep)
	v.SetDefault("layout.edge-sep", d.Layout.EdgeSep)
	v.SetDefault("layout.rank-sep", d.Layout.RankSep)
	v.SetDefault("layout.margin-x", d.Layout.MarginX)
	v.SetDefault("layout.margin-y", d.Layout.MarginY)
	v.SetDefault("layout.grid-columns", d.Layout.GridColumns)
	v.SetDefault("layout.sweeps", d.Layout.Sweeps)
	v.SetDefault("responder.delay", d.Responder.Delay)
	v.SetDefault("responder.seed", d.Responder.Seed)
	v.SetDefault("tokens.encoding", d.Tokens.Encoding)
}

var validate = validator.New()

// Load decodes the settings from v and validates them.
func Load(v *viper.Viper) (*Settings, error) {
	s := Default()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	if s.Storage.Backend == "sqlite" && s.Storage.DSN == "" && s.Storage.Dir == "" {
		return errors.New("invalid settings: sqlite storage needs storage.dsn or storage.dir")
	}
	if s.Autosave.Enabled && s.Autosave.Dir == "" {
		return errors.New("invalid settings: autosave needs autosave.dir")
	}
	return nil
}
