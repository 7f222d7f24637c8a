package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

// uploadMaxBytes caps question image uploads.
const uploadMaxBytes = 5 << 20

// handleUpsertQuestion saves a question edit. Editor edits are
// high-value: the state container signals the orchestrator for an
// immediate remote push.
func handleUpsertQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q trivia.Question
		if err := readJSON(r, &q); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if msg := validateQuestion(&q); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		q = app.State.UpsertQuestion(q)
		app.Broker.Publish(boardTopic, Event{Type: "board_updated", QuestionID: q.ID})
		writeJSON(w, http.StatusOK, q)
	}
}

func validateQuestion(q *trivia.Question) string {
	q.Category = strings.TrimSpace(q.Category)
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)

	switch {
	case q.Category == "":
		return "category is required"
	case !trivia.ValidPoints(q.Points):
		return "points must be one of 100, 200, 300, 400, 500"
	case q.Question == "":
		return "question is required"
	case q.Answer == "":
		return "answer is required"
	case q.BonusPoints < 0:
		return "bonus points cannot be negative"
	}
	switch q.MediaOn {
	case "", trivia.MediaOnQuestion, trivia.MediaOnAnswer, trivia.MediaOnBoth:
	default:
		return "mediaAssignment must be question, answer or both"
	}
	return ""
}

func handleDeleteQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid question id")
			return
		}

		if err := app.State.RemoveQuestion(id); errors.Is(err, session.ErrNoSuchQuestion) {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "board_updated", QuestionID: id})
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUpsertCategory(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c trivia.CategoryDescription
		if err := readJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		c.Category = strings.TrimSpace(c.Category)
		if c.Category == "" {
			writeError(w, http.StatusBadRequest, "category is required")
			return
		}

		c = app.State.UpsertCategory(c)
		app.Broker.Publish(boardTopic, Event{Type: "board_updated"})
		writeJSON(w, http.StatusOK, c)
	}
}

func handleDeleteCategory(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := app.State.RemoveCategory(name); errors.Is(err, session.ErrNoSuchCategory) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "board_updated"})
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleMediaUpload stores a question image in the media bucket and
// returns its URL for use as a question's imageUrl.
func handleMediaUpload(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Media == nil {
			writeError(w, http.StatusNotImplemented, "media storage is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, uploadMaxBytes)
		if err := r.ParseMultipartForm(uploadMaxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "upload too large or malformed")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		url, err := app.Media.Save(file, filepath.Ext(header.Filename))
		if err != nil {
			app.Logger.Error("media upload failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not store the file")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}
