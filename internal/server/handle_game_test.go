package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/database"
	"github.com/codebyamos/triviaboard/internal/migrations"
	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/store"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	snapshots, err := cache.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}

	games := store.NewSQLiteStore(db, logger, nil)
	state := session.NewState(snapshots, logger)
	saver := session.NewSaver(state, games, snapshots, logger, time.Minute, 20*time.Minute)
	loader := session.NewLoader(state, games, snapshots, logger)

	app, err := NewApp(logger, "1234")
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	app.DB = db
	app.Store = games
	app.State = state
	app.Saver = saver
	app.Loader = loader
	app.Cache = snapshots
	app.RecentGamesLimit = 5
	return app
}

func newTestServer(t *testing.T) (*httptest.Server, *App) {
	t.Helper()
	app := newTestApp(t)
	r := chi.NewRouter()
	addRoutes(r, app)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, app
}

func unlock(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv, "", "/api/unlock", UnlockRequest{Code: "1234"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock failed with status %d", resp.StatusCode)
	}
	var out UnlockResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding unlock response: %v", err)
	}
	return out.Token
}

func postJSON(t *testing.T, srv *httptest.Server, token, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, token, path string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp
}

func seedBoard(app *App) {
	app.State.Hydrate(trivia.GameSnapshot{
		GameDate: "2026-09-01",
		Questions: []trivia.Question{
			{ID: 1, Category: "Space", Points: 100, Question: "q1", Answer: "a1", BonusPoints: 25},
			{ID: 2, Category: "Space", Points: 200, Question: "q2", Answer: "a2"},
		},
		Categories: []trivia.CategoryDescription{{Category: "Space", Description: "Out there"}},
		Players: []trivia.Player{
			{ID: 1, Name: "Team 1"},
			{ID: 2, Name: "Team 2"},
		},
	})
}

func TestUnlockRejectsWrongCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "", "/api/unlock", UnlockRequest{Code: "0000"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv, "", "/api/unlock", UnlockRequest{Code: "12345"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-4-digit code, got %d", resp.StatusCode)
	}
}

func TestGameRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := getJSON(t, srv, "", "/api/game/state", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", resp.StatusCode)
	}

	resp = getJSON(t, srv, "made-up", "/api/game/state", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bogus token, got %d", resp.StatusCode)
	}
}

func TestGameStateReflectsBoard(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	var state GameStateResponse
	resp := getJSON(t, srv, token, "/api/game/state", &state)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if len(state.Board) != 1 {
		t.Fatalf("expected 1 category column, got %d", len(state.Board))
	}
	col := state.Board[0]
	if col.Category != "Space" || col.Description != "Out there" {
		t.Errorf("unexpected column: %+v", col)
	}
	if len(col.Cells) != len(trivia.PointValues) {
		t.Errorf("expected a cell per point tier, got %d", len(col.Cells))
	}
	if col.Cells[0].QuestionID != 1 || col.Cells[1].QuestionID != 2 {
		t.Errorf("expected questions in the 100 and 200 cells, got %+v", col.Cells)
	}
	if col.Cells[2].QuestionID != 0 {
		t.Error("expected the 300 cell empty")
	}
	if len(state.Players) != 2 {
		t.Errorf("expected 2 players, got %d", len(state.Players))
	}
}

func TestSelectCloseAwardOverHTTP(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	resp := postJSON(t, srv, token, "/api/game/select", SelectQuestionRequest{QuestionID: 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select: expected 200, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv, token, "/api/game/close", nil)
	var closed QuestionResponse
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", resp.StatusCode)
	}
	json.NewDecoder(resp.Body).Decode(&closed)
	resp.Body.Close()
	if !closed.Answered || closed.Question.ID != 1 {
		t.Errorf("expected question 1 closed and answered, got %+v", closed)
	}

	resp = postJSON(t, srv, token, "/api/game/award", AwardPointsRequest{PlayerID: 1, IncludeBonus: true})
	var award AwardPointsResponse
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("award: expected 200, got %d", resp.StatusCode)
	}
	json.NewDecoder(resp.Body).Decode(&award)
	resp.Body.Close()
	if award.Points != 125 || award.Player.Score != 125 {
		t.Errorf("expected 125 points with bonus, got %+v", award)
	}

	var state GameStateResponse
	getJSON(t, srv, token, "/api/game/state", &state)
	if len(state.Answered) != 1 || state.Answered[0] != 1 {
		t.Errorf("expected question 1 answered, got %v", state.Answered)
	}
	if state.ScoringPromptOpen {
		t.Error("expected the scoring prompt dismissed after the award")
	}
}

func TestAwardWithoutOpenQuestionConflicts(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	resp := postJSON(t, srv, token, "/api/game/award", AwardPointsRequest{PlayerID: 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSelectMissingQuestion(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	resp := postJSON(t, srv, token, "/api/game/select", SelectQuestionRequest{QuestionID: 999})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestManualSavePersistsAndReportsGameID(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	resp := postJSON(t, srv, token, "/api/game/save", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var save SaveResponse
	json.NewDecoder(resp.Body).Decode(&save)
	resp.Body.Close()

	if save.GameID == "" || save.LastSaved == "" {
		t.Fatalf("expected a game id and timestamp, got %+v", save)
	}

	snap, err := app.Store.LoadGame(context.Background(), save.GameID)
	if err != nil {
		t.Fatalf("loading the saved game: %v", err)
	}
	if len(snap.Questions) != 2 || len(snap.Players) != 2 {
		t.Errorf("expected the full board persisted, got %d questions %d players",
			len(snap.Questions), len(snap.Players))
	}
}

func TestNewGameArchivesAndResets(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	app.State.AdjustScore(1, 300)

	resp := postJSON(t, srv, token, "/api/game/new", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out NewGameResponse
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.HistoryID == "" {
		t.Fatal("expected a history record id")
	}

	var history []trivia.HistoryRecord
	getJSON(t, srv, token, "/api/history/", &history)
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}
	if history[0].WinnerName != "Team 1" || history[0].WinnerScore != 300 {
		t.Errorf("expected Team 1 with 300 as winner, got %s/%d",
			history[0].WinnerName, history[0].WinnerScore)
	}

	var state GameStateResponse
	getJSON(t, srv, token, "/api/game/state", &state)
	if len(state.Questions) != 0 {
		t.Error("expected an empty board after reset")
	}
	if len(state.Players) != 2 || state.Players[0].Score != 0 {
		t.Errorf("expected fresh default players, got %+v", state.Players)
	}
}

func TestEditorUpsertQuestionRoundTrip(t *testing.T) {
	srv, app := newTestServer(t)
	seedBoard(app)
	token := unlock(t, srv)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/game/questions",
		bytes.NewReader([]byte(`{"category":"Space","points":300,"question":"q3","answer":"a3"}`)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var state GameStateResponse
	getJSON(t, srv, token, "/api/game/state", &state)
	if len(state.Questions) != 3 {
		t.Errorf("expected 3 questions, got %d", len(state.Questions))
	}
	if state.Board[0].Cells[2].QuestionID == 0 {
		t.Error("expected the new question in the 300 cell")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	var health HealthResponse
	resp := getJSON(t, srv, "", "/healthz", &health)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
