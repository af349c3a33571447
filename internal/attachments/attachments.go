// Package attachments is the file-attachment store: uploads land on
// disk under a random id and are served back by stable path.
package attachments

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("attachment not found")

type Store struct {
	dir    string
	maxAge time.Duration
}

func NewStore(dir string, maxAge time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	return &Store{dir: dir, maxAge: maxAge}, nil
}

// Save writes the upload under a fresh id and returns the stable URL
// path clients embed in messages.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Join(s.dir, id), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(s.dir, id, name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	log.Info().Str("module", "attachments").Str("id", id).Str("name", name).Msg("attachment saved")
	return "/attachments/" + id + "/" + name, nil
}

// Resolve maps an id/name pair back to the on-disk file.
func (s *Store) Resolve(id, name string) (string, error) {
	// Base strips any traversal in user-supplied segments.
	path := filepath.Join(s.dir, filepath.Base(id), filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// Clean removes attachments older than maxAge. Returns the number of
// entries removed.
func (s *Store) Clean() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	cutoff := time.Now().Add(-s.maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
				log.Warn().Err(err).Str("module", "attachments").Str("id", e.Name()).Msg("sweep failed")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		log.Info().Str("module", "attachments").Int("removed", removed).Msg("swept stale attachments")
	}
	return removed, nil
}
