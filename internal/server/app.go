package server

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/media"
	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/store"
)

// App bundles the dependencies shared by the HTTP handlers.
type App struct {
	Logger *slog.Logger
	DB     *sql.DB
	Store  store.GameStore
	State  *session.State
	Saver  *session.Saver
	Loader *session.Loader
	Cache  *cache.Store
	Media  *media.Store
	Broker *Broker

	SPADir           string
	RecentGamesLimit int

	passcodeHash []byte
	sessions     *sessionSet
}

// NewApp hashes the passcode and prepares the session registry. The
// passcode itself is never kept in memory.
func NewApp(logger *slog.Logger, passcode string) (*App, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing passcode: %w", err)
	}
	return &App{
		Logger:       logger,
		Broker:       NewBroker(),
		passcodeHash: hash,
		sessions:     newSessionSet(),
	}, nil
}

// sessionSet tracks tokens minted by a successful passcode unlock.
// Tokens live for the process lifetime; there is one shared passcode, so
// there is nothing per-user to store.
type sessionSet struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func newSessionSet() *sessionSet {
	return &sessionSet{tokens: make(map[string]struct{})}
}

func (s *sessionSet) add(token string) {
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
}

func (s *sessionSet) has(token string) bool {
	s.mu.RLock()
	_, ok := s.tokens[token]
	s.mu.RUnlock()
	return ok
}
