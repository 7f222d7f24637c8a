// Package media is the disk-backed bucket for uploaded question images.
// Files are addressed by generated names; the serving URL is /media/<name>.
package media

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is where the bucket is mounted on the HTTP surface.
const URLPrefix = "/media/"

type Store struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the bucket directory, for mounting a file server.
func (s *Store) Dir() string {
	return s.dir
}

// Save stores the upload under a generated filename and returns its URL.
func (s *Store) Save(r io.Reader, ext string) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing media file: %w", err)
	}
	return URLPrefix + name, nil
}

// RemoveURL deletes the file behind a bucket URL. URLs outside the bucket
// (external images, data URIs) are ignored.
func (s *Store) RemoveURL(url string) error {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return nil
	}
	return s.remove(name)
}

func (s *Store) remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid media name %q", name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Sweep deletes every file whose URL is not in referenced and returns how
// many were removed. Used by the admin cleanup utility.
func (s *Store) Sweep(referenced map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading media dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := referenced[URLPrefix+e.Name()]; ok {
			continue
		}
		if err := s.remove(e.Name()); err != nil {
			s.logger.Warn("media sweep failed", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
