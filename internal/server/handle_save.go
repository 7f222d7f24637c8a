package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/store"
)

type SaveResponse struct {
	GameID    string `json:"gameId"`
	LastSaved string `json:"lastSaved"`
}

// handleManualSave pushes the current state to the database right now,
// bypassing the periodic gate. On success the local cache is cleared; on
// failure it stays intact as the durable copy.
func handleManualSave(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := app.Saver.ManualSave(r.Context())
		if errors.Is(err, session.ErrSaveInFlight) {
			writeError(w, http.StatusConflict, "a save is already in progress")
			return
		}
		if err != nil {
			app.Logger.Warn("manual save failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "could not save, check your connection and try again")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "game_saved", GameID: app.State.GameID()})
		writeJSON(w, http.StatusOK, SaveResponse{
			GameID:    app.State.GameID(),
			LastSaved: app.Saver.LastSaved().UTC().Format(time.RFC3339),
		})
	}
}

type RecentGameSummary struct {
	GameID        string `json:"gameId"`
	GameDate      string `json:"gameDate"`
	PlayerCount   int    `json:"playerCount"`
	QuestionCount int    `json:"questionCount"`
	CategoryCount int    `json:"categoryCount"`
}

func handleRecentGames(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := app.Store.LoadRecentGames(r.Context(), app.RecentGamesLimit)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}

		summaries := []RecentGameSummary{}
		for _, g := range games {
			summaries = append(summaries, RecentGameSummary{
				GameID:        g.GameID,
				GameDate:      g.GameDate,
				PlayerCount:   len(g.Players),
				QuestionCount: len(g.Questions),
				CategoryCount: len(g.Categories),
			})
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

type NewGameResponse struct {
	HistoryID string `json:"historyId,omitempty"`
}

// handleNewGame finalizes the running game into an immutable history
// record and resets the board. The fresh-start flag makes the next
// startup skip the local cache so the old game can't resurrect.
func handleNewGame(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := app.State.Snapshot()

		historyID, err := app.Store.SaveGameToHistory(r.Context(), snap.Players, snap.GameDate)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not archive the game, check your connection")
			return
		}

		app.Cache.SetFreshStart()
		app.Cache.ClearActiveGame()
		app.State.Reset()

		app.Broker.Publish(boardTopic, Event{Type: "game_reset"})
		writeJSON(w, http.StatusOK, NewGameResponse{HistoryID: historyID})
	}
}

type SetGameCodeRequest struct {
	Code string `json:"code"`
}

// handleSetGameCode attaches a shareable join code to the saved game.
func handleSetGameCode(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetGameCodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Code = strings.TrimSpace(req.Code)
		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}

		gameID := app.State.GameID()
		if gameID == "" {
			writeError(w, http.StatusConflict, "save the game before sharing it")
			return
		}

		err := app.Store.SetGameCode(r.Context(), gameID, req.Code)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusConflict, "save the game before sharing it")
			return
		}
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"gameId": gameID, "code": req.Code})
	}
}
