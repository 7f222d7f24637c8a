// Package cache persists game snapshots to local disk so the app can
// recover state when the relational store is unreachable. The cache is
// write-through: it always holds the most recent in-memory state, and is
// cleared only after a confirmed remote save.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codebyamos/triviaboard/internal/trivia"
)

const (
	snapshotFile   = "snapshot.json"
	backupPrefix   = "snapshot-backup-"
	backupSuffix   = ".json"
	freshStartFile = "fresh-start"
	activeGameFile = "active-game"

	// maxBackups is the number of rotating backup slots kept for recovery
	// when the primary slot is corrupt.
	maxBackups = 5
)

// Snapshot is the cached payload: the game snapshot plus bookkeeping
// stamps. Version increases monotonically (unix millis at save time).
type Snapshot struct {
	trivia.GameSnapshot
	LastSaved string `json:"lastSaved"`
	Version   int64  `json:"version"`
}

type Store struct {
	dir    string
	logger *slog.Logger

	// now is swappable in tests to control backup timestamps.
	now func() time.Time
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Save writes snap to the primary slot and a fresh timestamped backup
// slot, then prunes backups down to the newest maxBackups. Save never
// fails: serialization or disk errors are logged and swallowed so that
// callers can treat it as fire-and-forget.
func (s *Store) Save(snap trivia.GameSnapshot) {
	now := s.now()
	payload := Snapshot{
		GameSnapshot: snap,
		LastSaved:    now.UTC().Format(time.RFC3339),
		Version:      now.UnixMilli(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("cache save failed", "error", err)
		return
	}

	if err := os.WriteFile(filepath.Join(s.dir, snapshotFile), data, 0o644); err != nil {
		s.logger.Error("cache save failed", "error", err)
		return
	}

	backup := fmt.Sprintf("%s%020d%s", backupPrefix, now.UnixMilli(), backupSuffix)
	if err := os.WriteFile(filepath.Join(s.dir, backup), data, 0o644); err != nil {
		s.logger.Warn("cache backup write failed", "error", err)
	}

	s.pruneBackups()
}

// Load reads the primary slot. If it is missing or corrupt, backups are
// tried newest-first; the first one that parses wins. ok is false when
// nothing readable survives.
func (s *Store) Load() (Snapshot, bool) {
	if snap, err := s.readSlot(snapshotFile); err == nil {
		return snap, true
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("primary cache slot unreadable, trying backups", "error", err)
	}

	for _, name := range s.backupNames() {
		snap, err := s.readSlot(name)
		if err != nil {
			s.logger.Warn("cache backup unreadable", "slot", name, "error", err)
			continue
		}
		return snap, true
	}
	return Snapshot{}, false
}

// Clear removes the primary slot and every backup slot. Called after a
// confirmed remote save: local cache only ever represents state not yet
// confirmed remote.
func (s *Store) Clear() {
	if err := os.Remove(filepath.Join(s.dir, snapshotFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("cache clear failed", "error", err)
	}
	for _, name := range s.backupNames() {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cache backup remove failed", "slot", name, "error", err)
		}
	}
}

// SetFreshStart marks that a new game was just started. The very next
// load must skip the cache fallback and hydrate clean.
func (s *Store) SetFreshStart() {
	if err := os.WriteFile(filepath.Join(s.dir, freshStartFile), []byte("1"), 0o644); err != nil {
		s.logger.Warn("fresh-start flag write failed", "error", err)
	}
}

// TakeFreshStart reads and clears the one-shot fresh-start flag.
func (s *Store) TakeFreshStart() bool {
	path := filepath.Join(s.dir, freshStartFile)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	os.Remove(path)
	return true
}

// SetActiveGame records the remote game id in use, so reloads and
// shareable links can resolve it again.
func (s *Store) SetActiveGame(gameID string) {
	if err := os.WriteFile(filepath.Join(s.dir, activeGameFile), []byte(gameID), 0o644); err != nil {
		s.logger.Warn("active-game slot write failed", "error", err)
	}
}

// ActiveGame returns the recorded game id, or "" if none.
func (s *Store) ActiveGame() string {
	data, err := os.ReadFile(filepath.Join(s.dir, activeGameFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ClearActiveGame removes the active-game slot.
func (s *Store) ClearActiveGame() {
	os.Remove(filepath.Join(s.dir, activeGameFile))
}

func (s *Store) readSlot(name string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parsing %s: %w", name, err)
	}
	return snap, nil
}

// backupNames returns backup slot names, newest first. The zero-padded
// millisecond timestamp in the name makes lexical order chronological.
func (s *Store) backupNames() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

func (s *Store) pruneBackups() {
	names := s.backupNames()
	for _, name := range names[min(len(names), maxBackups):] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("cache backup prune failed", "slot", name, "error", err)
		}
	}
}
