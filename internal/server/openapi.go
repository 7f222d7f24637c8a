package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "TriviaBoard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the TriviaBoard party game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/unlock
	postUnlock, _ := r.NewOperationContext(http.MethodPost, "/api/unlock")
	postUnlock.SetSummary("Unlock with the passcode")
	postUnlock.SetDescription("Exchanges the 4-digit passcode for a session token.")
	postUnlock.AddReqStructure(UnlockRequest{})
	postUnlock.AddRespStructure(UnlockResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postUnlock.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postUnlock)

	// POST /api/game/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/game/join")
	postJoin.SetSummary("Join a game by share code")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(map[string]string{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postJoin)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Current board state")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// POST /api/game/select
	postSelect, _ := r.NewOperationContext(http.MethodPost, "/api/game/select")
	postSelect.SetSummary("Open a question")
	postSelect.AddReqStructure(SelectQuestionRequest{})
	postSelect.AddRespStructure(QuestionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSelect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postSelect)

	// POST /api/game/close
	postClose, _ := r.NewOperationContext(http.MethodPost, "/api/game/close")
	postClose.SetSummary("Close the open question")
	postClose.SetDescription("Closing marks the question answered and raises the scoring prompt.")
	postClose.AddRespStructure(QuestionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClose.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postClose)

	// POST /api/game/award
	postAward, _ := r.NewOperationContext(http.MethodPost, "/api/game/award")
	postAward.SetSummary("Award the closed question's points to a player")
	postAward.AddReqStructure(AwardPointsRequest{})
	postAward.AddRespStructure(AwardPointsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAward.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAward)

	// POST /api/game/save
	postSave, _ := r.NewOperationContext(http.MethodPost, "/api/game/save")
	postSave.SetSummary("Save the game to the database now")
	postSave.AddRespStructure(SaveResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSave.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postSave)

	// POST /api/game/new
	postNew, _ := r.NewOperationContext(http.MethodPost, "/api/game/new")
	postNew.SetSummary("Finalize the game and start a new one")
	postNew.AddRespStructure(NewGameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postNew)

	// GET /api/game/recent
	getRecent, _ := r.NewOperationContext(http.MethodGet, "/api/game/recent")
	getRecent.SetSummary("Recently played games")
	getRecent.AddRespStructure([]RecentGameSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getRecent)

	// GET /api/history
	getHistory, _ := r.NewOperationContext(http.MethodGet, "/api/history")
	getHistory.SetSummary("Completed game history")
	getHistory.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHistory)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(spec)
	}
}
