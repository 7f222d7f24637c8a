package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codebyamos/triviaboard/internal/store"
)

func handleListHistory(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := app.Store.ListHistory(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "could not reach the game database, check your connection")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// handleDeleteHistory removes a history record; its players cascade.
func handleDeleteHistory(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := app.Store.DeleteHistory(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "history record not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
