package userscript

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// Extension is the suffix that identifies script files.
const Extension = ".js"

// Record is a snapshot of one script file.  Records are never modified after
// Scan returns them.
type Record struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Enabled  bool     `json:"enabled"`

	// Mtime is the modification time in seconds since the Unix epoch.
	Mtime float64 `json:"mtime"`
}

// Store reads scripts from a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scripts dir: %w", err)
	}
	return nil
}

// NewStore returns a Store for dir.  The directory is not touched until Scan.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the directory the store scans.
func (s *Store) Dir() string { return s.dir }

// Scan reads every script in the directory.  Files that cannot be read are
// logged and skipped; only a failure to list the directory is an error.
func (s *Store) Scan() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		r, err := s.read(path)
		if err != nil {
			s.logger.Warn("skipping script", "path", path, "err", err)
			continue
		}
		s.logger.Debug("loaded script", "name", r.Name)
		records = append(records, r)
	}
	return records, nil
}

// read builds a Record for the file at path.
func (s *Store) read(path string) (Record, error) {
	// Stat follows symlinks, so linked scripts are picked up and linked
	// directories are rejected.
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, err
	}
	if !info.Mode().IsRegular() {
		return Record{}, fmt.Errorf("not a regular file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	if !utf8.Valid(data) {
		return Record{}, fmt.Errorf("content is not valid UTF-8")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Record{}, err
	}

	content := string(data)
	meta, diags := Parse(content)
	for _, d := range diags {
		s.logger.Debug("metadata ignored", "path", path, "line", d.Line, "reason", d.Reason)
	}

	return Record{
		Name:     filepath.Base(path),
		Path:     abs,
		Content:  content,
		Metadata: meta,
		Enabled:  true,
		Mtime:    unixSeconds(info.ModTime()),
	}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Digest returns a hex digest identifying the names and contents of records.
// Two scans of an unchanged directory produce the same digest.
func Digest(records []Record) string {
	h := blake3.New()
	for _, r := range records {
		fmt.Fprintf(h, "%d:%s%d:", len(r.Name), r.Name, len(r.Content))
		h.Write([]byte(r.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
