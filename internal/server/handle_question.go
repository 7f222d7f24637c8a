package server

import (
	"errors"
	"net/http"

	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

type SelectQuestionRequest struct {
	QuestionID int `json:"questionId"`
}

type QuestionResponse struct {
	Question trivia.Question `json:"question"`
	Answered bool            `json:"answered"`
}

// handleSelectQuestion opens the question modal. Opening does not mark
// the question answered; only closing does.
func handleSelectQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectQuestionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		q, err := app.State.SelectQuestion(req.QuestionID)
		if errors.Is(err, session.ErrNoSuchQuestion) {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "question_opened", QuestionID: q.ID})
		writeJSON(w, http.StatusOK, QuestionResponse{Question: q})
	}
}

// handleCloseQuestion closes the modal, marks the question answered and
// raises the scoring prompt.
func handleCloseQuestion(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := app.State.CloseQuestion()
		if errors.Is(err, session.ErrNoSuchQuestion) {
			writeError(w, http.StatusConflict, "no question is open")
			return
		}

		app.Broker.Publish(boardTopic, Event{Type: "question_closed", QuestionID: q.ID})
		writeJSON(w, http.StatusOK, QuestionResponse{Question: q, Answered: true})
	}
}

type AwardPointsRequest struct {
	PlayerID     int  `json:"playerId"`
	IncludeBonus bool `json:"includeBonus"`
}

type AwardPointsResponse struct {
	Player trivia.Player `json:"player"`
	Points int           `json:"points"`
}

func handleAwardPoints(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AwardPointsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		player, points, err := app.State.AwardPoints(req.PlayerID, req.IncludeBonus)
		switch {
		case errors.Is(err, session.ErrNothingToScore):
			writeError(w, http.StatusConflict, "no closed question awaiting scoring")
			return
		case errors.Is(err, session.ErrNoSuchPlayer):
			writeError(w, http.StatusNotFound, "player not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		app.Broker.Publish(boardTopic, Event{
			Type:       "points_awarded",
			PlayerID:   player.ID,
			PlayerName: player.Name,
			Points:     points,
		})
		writeJSON(w, http.StatusOK, AwardPointsResponse{Player: player, Points: points})
	}
}

// handleDismissScoring skips the scoring prompt without awarding points.
func handleDismissScoring(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.State.DismissScoring()
		w.WriteHeader(http.StatusNoContent)
	}
}
