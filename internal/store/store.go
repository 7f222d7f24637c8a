// Package store is the relational persistence layer for games. Row sets
// for a game are replaced wholesale on save (delete-all-then-insert-all);
// there is no incremental upsert. Two hosts saving the same game
// concurrently race, and the last full replace wins, an accepted trade
// for a single-host party game.
package store

import (
	"context"
	"errors"

	"github.com/codebyamos/triviaboard/internal/trivia"
)

// ErrNotFound marks a missing row. Callers treat it as a legitimate empty
// result, not a failure.
var ErrNotFound = errors.New("not found")

// GameRow is a summary row for listings (recent games, admin cleanup).
type GameRow struct {
	ID            string `json:"id"`
	GameDate      string `json:"gameDate"`
	GameCode      string `json:"gameCode,omitempty"`
	CreatedAt     string `json:"createdAt"`
	PlayerCount   int    `json:"playerCount"`
	QuestionCount int    `json:"questionCount"`
}

type GameStore interface {
	// CreateOrFindGame reuses existingID if it still exists, else finds a
	// game by exact gameDate, else inserts a new game row. Transient
	// failures are retried with exponential backoff before surfacing.
	CreateOrFindGame(ctx context.Context, gameDate, existingID string) (string, error)

	// SavePlayers, SaveQuestions and SaveCategories each replace the full
	// row set for gameID with the given collection.
	SavePlayers(ctx context.Context, gameID string, players []trivia.Player) error
	SaveQuestions(ctx context.Context, gameID string, questions []trivia.Question, answered []int) error
	SaveCategories(ctx context.Context, gameID string, categories []trivia.CategoryDescription) error

	LoadGame(ctx context.Context, gameID string) (trivia.GameSnapshot, error)
	LoadRecentGames(ctx context.Context, limit int) ([]trivia.GameSnapshot, error)
	ListGames(ctx context.Context) ([]GameRow, error)
	DeleteGame(ctx context.Context, gameID string) error

	// ReferencedMedia returns every image URL some game still points at.
	ReferencedMedia(ctx context.Context) (map[string]struct{}, error)

	// ResolveGameCode maps a human-entered share code to a game id.
	ResolveGameCode(ctx context.Context, code string) (string, error)
	SetGameCode(ctx context.Context, gameID, code string) error

	// SaveGameToHistory finalizes a game: winner is the max score, ties
	// broken by input order. Returns "" without inserting when players is
	// empty.
	SaveGameToHistory(ctx context.Context, players []trivia.Player, gameDate string) (string, error)
	ListHistory(ctx context.Context) ([]trivia.HistoryRecord, error)
	DeleteHistory(ctx context.Context, id string) error
}
