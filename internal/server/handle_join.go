package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/codebyamos/triviaboard/internal/store"
)

type JoinRequest struct {
	Code string `json:"code"`
}

// handleJoin resolves a shareable game code and hydrates the board from
// that game. Remote data wins over whatever is cached locally.
func handleJoin(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Code = strings.TrimSpace(req.Code)
		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}

		gameID, err := app.Store.ResolveGameCode(r.Context(), req.Code)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no game found for that code")
			return
		}
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}

		source, err := app.Loader.Hydrate(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "game_loaded", GameID: app.State.GameID()})
		writeJSON(w, http.StatusOK, map[string]string{
			"gameId": app.State.GameID(),
			"source": string(source),
		})
	}
}
