package server

import (
	"errors"
	"net/http"

	"github.com/codebyamos/triviaboard/internal/store"
)

// The cleanup utility lives at a fixed path and lets the host prune old
// game rows and media files the board no longer references.

func handleCleanupList(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := app.Store.ListGames(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"games":        games,
			"activeGameId": app.State.GameID(),
		})
	}
}

type CleanupGamesRequest struct {
	GameIDs []string `json:"gameIds"`
}

type CleanupGamesResponse struct {
	Deleted int `json:"deleted"`
}

// handleCleanupGames deletes the given games: their questions, players,
// categories, the game row, and any media only they referenced.
func handleCleanupGames(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CleanupGamesRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.GameIDs) == 0 {
			writeError(w, http.StatusBadRequest, "gameIds is required")
			return
		}

		deleted := 0
		for _, id := range req.GameIDs {
			err := app.Store.DeleteGame(r.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				app.Logger.Error("game delete failed", "game_id", id, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			deleted++
		}
		writeJSON(w, http.StatusOK, CleanupGamesResponse{Deleted: deleted})
	}
}

type CleanupMediaResponse struct {
	Removed int `json:"removed"`
}

// handleCleanupMedia sweeps bucket files no game references anymore.
func handleCleanupMedia(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Media == nil {
			writeError(w, http.StatusNotImplemented, "media storage is not configured")
			return
		}

		referenced, err := app.Store.ReferencedMedia(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}
		// The live board may hold uploads not yet saved remotely.
		for _, q := range app.State.Snapshot().Questions {
			if q.ImageURL != "" {
				referenced[q.ImageURL] = struct{}{}
			}
		}

		removed, err := app.Media.Sweep(referenced)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, CleanupMediaResponse{Removed: removed})
	}
}
