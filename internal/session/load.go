package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/store"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

// Source says where a hydration got its data from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceFresh  Source = "fresh"
)

// Loader hydrates the state container at startup or when a share code is
// joined. Precedence: remote is always preferred whenever a game id can
// be resolved; the local cache is only a fallback when no id resolves or
// the remote call fails; an empty board with the default players is the
// last resort.
type Loader struct {
	state  *State
	store  store.GameStore
	cache  *cache.Store
	logger *slog.Logger
}

func NewLoader(state *State, gs store.GameStore, c *cache.Store, logger *slog.Logger) *Loader {
	return &Loader{state: state, store: gs, cache: c, logger: logger}
}

// Hydrate runs the load sequence. requestedID, when non-empty, wins the
// candidate resolution (shareable links); otherwise the recorded active
// game is tried, then the most recently dated remote game.
func (l *Loader) Hydrate(ctx context.Context, requestedID string) (Source, error) {
	// One-shot: set when a game was just finalized. Suppresses the cache
	// fallback exactly once so the next start hydrates clean.
	freshStart := l.cache.TakeFreshStart()

	l.logger.Debug("load state", "phase", "resolving")
	candidate := requestedID
	if candidate == "" {
		candidate = l.cache.ActiveGame()
	}
	if candidate == "" {
		candidate = l.mostRecentGameID(ctx)
	}

	if candidate != "" {
		l.logger.Debug("load state", "phase", "hydrating_from_remote", "game_id", candidate)
		snap, err := l.store.LoadGame(ctx, candidate)
		if err == nil {
			// Hydrate writes back through the cache, keeping it warm for
			// the next load attempt.
			l.state.Hydrate(snap)
			l.cache.SetActiveGame(snap.GameID)
			l.logger.Info("game loaded from database", "game_id", snap.GameID, "game_date", snap.GameDate)
			return SourceRemote, nil
		}
		l.logger.Warn("remote hydration failed, falling back", "game_id", candidate, "error", err)
	}

	if !freshStart {
		l.logger.Debug("load state", "phase", "hydrating_from_local")
		if snap, ok := l.cache.Load(); ok {
			l.state.Hydrate(snap.GameSnapshot)
			l.logger.Info("game loaded from local cache", "last_saved", snap.LastSaved)
			return SourceCache, nil
		}
	}

	l.logger.Debug("load state", "phase", "fresh_empty_game")
	l.state.Hydrate(trivia.GameSnapshot{
		GameDate: time.Now().Format("2006-01-02"),
		Players:  append([]trivia.Player(nil), DefaultPlayers...),
	})
	l.logger.Info("starting a fresh empty game")
	return SourceFresh, nil
}

func (l *Loader) mostRecentGameID(ctx context.Context) string {
	games, err := l.store.LoadRecentGames(ctx, 1)
	if err != nil {
		l.logger.Warn("recent game lookup failed", "error", err)
		return ""
	}
	if len(games) == 0 {
		return ""
	}
	return games[0].GameID
}
