package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

func handleUpsertPlayer(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p trivia.Player
		if err := readJSON(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		p = app.State.UpsertPlayer(p)
		app.Broker.Publish(boardTopic, Event{Type: "player_updated", PlayerID: p.ID, PlayerName: p.Name})
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDeletePlayer(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		if err := app.State.RemovePlayer(id); errors.Is(err, session.ErrNoSuchPlayer) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "player_removed", PlayerID: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

type AdjustScoreRequest struct {
	Delta int `json:"delta"`
}

// handleAdjustScore adds a signed delta to a player's score. Negative
// totals are allowed.
func handleAdjustScore(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		var req AdjustScoreRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		player, err := app.State.AdjustScore(id, req.Delta)
		if errors.Is(err, session.ErrNoSuchPlayer) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}

		app.Broker.Publish(boardTopic, Event{
			Type:       "score_adjusted",
			PlayerID:   player.ID,
			PlayerName: player.Name,
			Points:     req.Delta,
		})
		writeJSON(w, http.StatusOK, player)
	}
}
