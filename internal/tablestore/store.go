// Package tablestore persists the banned-character table on a billy filesystem.
//
// The table is a JSON or YAML document of the form
//
//	{"BannedCharacters": [{"character": "#", "replacementcharacter": "-"}]}
//
// chosen by file extension. A missing file loads as an empty table.
package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/metasync/pkg/constants"
	"github.com/agentstation/metasync/pkg/errors"
	"github.com/agentstation/metasync/pkg/logging"
	"github.com/agentstation/metasync/pkg/sanitize"
)

// Format is the encoding of a table file.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format implied by a file name.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.NewValidationError("table file", name, "extension must be .json, .yaml or .yml")
	}
}

type document struct {
	BannedCharacters []sanitize.Entry `json:"BannedCharacters" yaml:"BannedCharacters"`
}

// Store reads and writes one table file.
type Store struct {
	fs     billy.Filesystem
	name   string
	format Format
}

// New returns a store for the file name on fs.
func New(fs billy.Filesystem, name string) (*Store, error) {
	format, err := FormatFor(name)
	if err != nil {
		return nil, err
	}
	return &Store{fs: fs, name: name, format: format}, nil
}

// NewOS returns a store for the file name inside dir on the local filesystem.
func NewOS(dir, name string) (*Store, error) {
	return New(osfs.New(dir), name)
}

// Path returns the file name relative to the filesystem root.
func (s *Store) Path() string {
	return s.name
}

// Load reads the table. A missing file yields an empty table.
func (s *Store) Load(ctx context.Context) (*sanitize.Table, error) {
	data, err := util.ReadFile(s.fs, s.name)
	if os.IsNotExist(err) {
		logging.FromContext(ctx).Info().Str("file", s.name).Msg("No banned character table found; starting empty")
		return sanitize.NewTable()
	}
	if err != nil {
		return nil, errors.WrapIO("read", s.name, err)
	}

	var doc document
	if err := s.decode(data, &doc); err != nil {
		return nil, errors.WrapParse(string(s.format), s.name, err)
	}
	t, err := sanitize.NewTable(doc.BannedCharacters...)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Str("file", s.name).
		Int("entries", t.Len()).
		Int("unresolved", len(t.Unresolved())).
		Msg("Loaded banned character table")
	return t, nil
}

// Save overwrites the file with the full table. The file is written to a
// temporary name first and renamed into place.
func (s *Store) Save(ctx context.Context, t *sanitize.Table) error {
	data, err := s.encode(document{BannedCharacters: t.Entries()})
	if err != nil {
		return errors.WrapParse(string(s.format), s.name, err)
	}

	if dir := path.Dir(s.name); dir != "." && dir != "/" {
		if err := s.fs.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}
	tmp := s.name + ".tmp"
	if err := util.WriteFile(s.fs, tmp, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.name); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.WrapIO("rename", s.name, err)
	}

	logging.FromContext(ctx).Info().
		Str("file", s.name).
		Int("entries", t.Len()).
		Msg("Saved banned character table")
	return nil
}

func (s *Store) decode(data []byte, doc *document) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if s.format == FormatYAML {
		return yaml.Unmarshal(data, doc)
	}
	return json.Unmarshal(data, doc)
}

func (s *Store) encode(doc document) ([]byte, error) {
	if doc.BannedCharacters == nil {
		doc.BannedCharacters = []sanitize.Entry{}
	}
	if s.format == FormatYAML {
		return yaml.MarshalWithOptions(doc, yaml.Indent(2), yaml.IndentSequence(true))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
