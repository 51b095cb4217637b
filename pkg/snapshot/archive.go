package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/pkg/errors"
)

// DefaultArchiveFormat lays archived snapshots out by day.
const DefaultArchiveFormat = `{{.Year}}/{{.Month}}/{{.Day}}/{{.Time.Format "150405"}}-{{.TreeID | trunc 8}}.json`

// Archiver writes a copy of every saved snapshot below Dir, at a path
// computed from Format. Format is a text/template with the sprig functions.
type Archiver struct {
	Dir  string
	tmpl *template.Template
	now  func() time.Time
}

type ArchiverOption func(*Archiver)

func WithArchiveClock(now func() time.Time) ArchiverOption {
	return func(a *Archiver) {
		a.now = now
	}
}

func NewArchiver(dir, format string, options ...ArchiverOption) (*Archiver, error) {
	if dir == "" {
		return nil, errors.New("archive: empty directory")
	}
	if format == "" {
		format = DefaultArchiveFormat
	}
	tmpl, err := template.New("autosave").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse archive format")
	}
	a := &Archiver{Dir: dir, tmpl: tmpl, now: time.Now}
	for _, o := range options {
		o(a)
	}
	return a, nil
}

// Path renders the archive path for a tree at the current time.
func (a *Archiver) Path(tree conversation.Tree) (string, error) {
	t := a.now().UTC()
	data := map[string]interface{}{
		"Year":      t.Format("2006"),
		"Month":     t.Format("01"),
		"Day":       t.Format("02"),
		"Time":      t,
		"TreeID":    tree.RootNodeID.String(),
		"NodeCount": len(tree.Nodes),
		"Tree":      tree,
	}

	var filePathBuffer strings.Builder
	if err := a.tmpl.Execute(&filePathBuffer, data); err != nil {
		return "", errors.Wrap(err, "could not render archive path")
	}
	rel := filepath.Clean(filePathBuffer.String())
	if rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("archive path %q escapes %s", filePathBuffer.String(), a.Dir)
	}
	return filepath.Join(a.Dir, rel), nil
}

// Archive writes the encoded snapshot and returns the path it was written to.
func (a *Archiver) Archive(tree conversation.Tree, data []byte) (string, error) {
	fullPath, err := a.Path(tree)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", errors.Wrapf(err, "could not write %s", fullPath)
	}
	return fullPath, nil
}
