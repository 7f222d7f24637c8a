package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/store"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

// stubStore is an in-memory GameStore with injectable failures.
type stubStore struct {
	mu sync.Mutex

	failCreate    error
	failQuestions error

	createCalls    int
	savedPlayers   []trivia.Player
	savedQuestions []trivia.Question
	savedAnswered  []int

	games  map[string]trivia.GameSnapshot
	recent []trivia.GameSnapshot
}

func newStubStore() *stubStore {
	return &stubStore{games: map[string]trivia.GameSnapshot{}}
}

func (s *stubStore) CreateOrFindGame(ctx context.Context, gameDate, existingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreate != nil {
		return "", s.failCreate
	}
	if existingID != "" {
		return existingID, nil
	}
	return "game-1", nil
}

func (s *stubStore) SavePlayers(ctx context.Context, gameID string, players []trivia.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedPlayers = append([]trivia.Player(nil), players...)
	return nil
}

func (s *stubStore) SaveQuestions(ctx context.Context, gameID string, questions []trivia.Question, answered []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failQuestions != nil {
		return s.failQuestions
	}
	s.savedQuestions = append([]trivia.Question(nil), questions...)
	s.savedAnswered = append([]int(nil), answered...)
	return nil
}

func (s *stubStore) SaveCategories(ctx context.Context, gameID string, categories []trivia.CategoryDescription) error {
	return nil
}

func (s *stubStore) LoadGame(ctx context.Context, gameID string) (trivia.GameSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.games[gameID]
	if !ok {
		return trivia.GameSnapshot{}, store.ErrNotFound
	}
	return snap, nil
}

func (s *stubStore) LoadRecentGames(ctx context.Context, limit int) ([]trivia.GameSnapshot, error) {
	return s.recent, nil
}

func (s *stubStore) ListGames(ctx context.Context) ([]store.GameRow, error) { return nil, nil }
func (s *stubStore) DeleteGame(ctx context.Context, gameID string) error    { return nil }

func (s *stubStore) ReferencedMedia(ctx context.Context) (map[string]struct{}, error) {
	return nil, nil
}

func (s *stubStore) ResolveGameCode(ctx context.Context, code string) (string, error) {
	return "", store.ErrNotFound
}
func (s *stubStore) SetGameCode(ctx context.Context, gameID, code string) error { return nil }

func (s *stubStore) SaveGameToHistory(ctx context.Context, players []trivia.Player, gameDate string) (string, error) {
	return "", nil
}
func (s *stubStore) ListHistory(ctx context.Context) ([]trivia.HistoryRecord, error) { return nil, nil }
func (s *stubStore) DeleteHistory(ctx context.Context, id string) error              { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func testCache(t *testing.T) *cache.Store {
	t.Helper()
	c, err := cache.New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}
	return c
}

func boardState(t *testing.T) (*State, *cache.Store) {
	t.Helper()
	c := testCache(t)
	s := NewState(c, testLogger())
	s.Hydrate(trivia.GameSnapshot{
		GameDate: "2026-09-01",
		Questions: []trivia.Question{
			{ID: 1, Category: "Space", Points: 100, Question: "q1", Answer: "a1", BonusPoints: 50},
			{ID: 2, Category: "Space", Points: 200, Question: "q2", Answer: "a2"},
		},
		Players: []trivia.Player{
			{ID: 1, Name: "Team 1"},
			{ID: 2, Name: "Team 2"},
		},
	})
	return s, c
}

func TestSelectCloseAwardFlow(t *testing.T) {
	s, _ := boardState(t)

	if _, err := s.SelectQuestion(1); err != nil {
		t.Fatalf("selecting: %v", err)
	}
	selected, questionOpen, scoringOpen := s.Modals()
	if selected != 1 || !questionOpen || scoringOpen {
		t.Fatalf("expected question modal open, got selected=%d open=%v scoring=%v", selected, questionOpen, scoringOpen)
	}
	if snap := s.Snapshot(); len(snap.Answered) != 0 {
		t.Error("selecting must not mark the question answered")
	}

	if _, err := s.CloseQuestion(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Answered) != 1 || snap.Answered[0] != 1 {
		t.Errorf("closing marks answered, got %v", snap.Answered)
	}
	if _, _, scoringOpen := s.Modals(); !scoringOpen {
		t.Error("closing raises the scoring prompt")
	}

	p, points, err := s.AwardPoints(1, true)
	if err != nil {
		t.Fatalf("awarding: %v", err)
	}
	if points != 150 {
		t.Errorf("expected 100 + 50 bonus, got %d", points)
	}
	if p.Score != 150 {
		t.Errorf("expected score 150, got %d", p.Score)
	}
	if _, _, scoringOpen := s.Modals(); scoringOpen {
		t.Error("awarding dismisses the scoring prompt")
	}
}

func TestAwardWithoutClosedQuestion(t *testing.T) {
	s, _ := boardState(t)

	if _, _, err := s.AwardPoints(1, false); !errors.Is(err, ErrNothingToScore) {
		t.Errorf("expected ErrNothingToScore, got %v", err)
	}
}

func TestDismissScoringAwardsNothing(t *testing.T) {
	s, _ := boardState(t)

	s.SelectQuestion(2)
	s.CloseQuestion()
	s.DismissScoring()

	for _, p := range s.Snapshot().Players {
		if p.Score != 0 {
			t.Errorf("expected no points awarded, %s has %d", p.Name, p.Score)
		}
	}
	if _, _, err := s.AwardPoints(1, false); !errors.Is(err, ErrNothingToScore) {
		t.Error("dismissal should end the scoring window")
	}
}

func TestRemoveQuestionPrunesAnsweredAndSelection(t *testing.T) {
	s, _ := boardState(t)

	s.SelectQuestion(1)
	s.CloseQuestion()

	if err := s.RemoveQuestion(1); err != nil {
		t.Fatalf("removing: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Questions) != 1 {
		t.Errorf("expected 1 question left, got %d", len(snap.Questions))
	}
	if len(snap.Answered) != 0 {
		t.Errorf("expected the answered mark pruned, got %v", snap.Answered)
	}
	if selected, _, scoringOpen := s.Modals(); selected != 0 || scoringOpen {
		t.Error("expected selection and scoring cleared")
	}
}

func TestAdjustScoreMayGoNegative(t *testing.T) {
	s, _ := boardState(t)

	p, err := s.AdjustScore(2, -300)
	if err != nil {
		t.Fatal(err)
	}
	if p.Score != -300 {
		t.Errorf("expected -300, got %d", p.Score)
	}
}

func TestUpsertPlayerAssignsNextID(t *testing.T) {
	s, _ := boardState(t)

	p := s.UpsertPlayer(trivia.Player{Name: "Team 3"})
	if p.ID != 3 {
		t.Errorf("expected id 3, got %d", p.ID)
	}
}

func TestMutationsWriteThroughToCache(t *testing.T) {
	s, c := boardState(t)

	s.AdjustScore(1, 500)

	snap, ok := c.Load()
	if !ok {
		t.Fatal("expected a cached snapshot")
	}
	if snap.Players[0].Score != 500 {
		t.Errorf("cache is lagging memory: score %d", snap.Players[0].Score)
	}
}

func TestEditorMutationSignalsAutoSave(t *testing.T) {
	s, _ := boardState(t)

	s.UpsertQuestion(trivia.Question{Category: "Movies", Points: 300, Question: "q", Answer: "a"})

	select {
	case <-s.AutoSave():
	default:
		t.Error("expected a pending auto-save signal")
	}

	// Score changes are gameplay, not edits: no signal.
	s.AdjustScore(1, 100)
	select {
	case <-s.AutoSave():
		t.Error("score adjustment must not trigger auto-save")
	default:
	}
}

func newTestSaver(t *testing.T) (*Saver, *State, *stubStore, *cache.Store) {
	t.Helper()
	s, c := boardState(t)
	gs := newStubStore()
	saver := NewSaver(s, gs, c, testLogger(), time.Minute, 20*time.Minute)
	saver.retryDelay = time.Millisecond
	return saver, s, gs, c
}

func TestManualSavePushesAndClearsCache(t *testing.T) {
	saver, s, gs, c := newTestSaver(t)

	if err := saver.ManualSave(context.Background()); err != nil {
		t.Fatalf("manual save: %v", err)
	}

	if s.GameID() != "game-1" {
		t.Errorf("expected the remote id recorded, got %q", s.GameID())
	}
	if len(gs.savedQuestions) != 2 || len(gs.savedPlayers) != 2 {
		t.Errorf("expected full snapshot pushed, got %d questions %d players",
			len(gs.savedQuestions), len(gs.savedPlayers))
	}
	if _, ok := c.Load(); ok {
		t.Error("a successful push clears the cache")
	}
	if c.ActiveGame() != "game-1" {
		t.Errorf("expected active game recorded, got %q", c.ActiveGame())
	}
	if saver.LastSaved().IsZero() {
		t.Error("expected the gate timestamp set")
	}
}

func TestManualSaveRetriesThenFails(t *testing.T) {
	saver, _, gs, c := newTestSaver(t)
	gs.failCreate = errors.New("offline")

	err := saver.ManualSave(context.Background())
	if err == nil {
		t.Fatal("expected the save to fail")
	}
	if gs.createCalls != manualAttempts {
		t.Errorf("expected %d attempts, got %d", manualAttempts, gs.createCalls)
	}
	if _, ok := c.Load(); !ok {
		t.Error("a failed save must leave the cache intact")
	}
	if !saver.LastSaved().IsZero() {
		t.Error("a failed save must not reset the gate")
	}
}

func TestManualSavePartialFailureFailsWhole(t *testing.T) {
	saver, _, gs, c := newTestSaver(t)
	gs.failQuestions = errors.New("constraint violation")

	if err := saver.ManualSave(context.Background()); err == nil {
		t.Fatal("expected failure when a sub-step fails")
	}
	if _, ok := c.Load(); !ok {
		t.Error("cache must survive a partial push")
	}
}

func TestManualSaveDropsWhenInFlight(t *testing.T) {
	saver, _, _, _ := newTestSaver(t)

	saver.saving.Store(true)
	defer saver.saving.Store(false)

	if err := saver.ManualSave(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Errorf("expected ErrSaveInFlight, got %v", err)
	}
}

func TestAutoSaveDroppedWhenInFlight(t *testing.T) {
	saver, _, gs, _ := newTestSaver(t)

	saver.saving.Store(true)
	saver.autoSavePush(context.Background())
	saver.saving.Store(false)

	if gs.createCalls != 0 {
		t.Errorf("expected the push dropped, got %d calls", gs.createCalls)
	}
}

func TestPeriodicTickRespectsGate(t *testing.T) {
	saver, _, gs, _ := newTestSaver(t)

	// Gate closed: a recent successful save.
	saver.mu.Lock()
	saver.lastSaved = time.Now()
	saver.mu.Unlock()

	saver.periodicTick(context.Background())
	if gs.createCalls != 0 {
		t.Errorf("expected no push inside the minimum gap, got %d calls", gs.createCalls)
	}

	// Gate open: last save long enough ago.
	saver.mu.Lock()
	saver.lastSaved = time.Now().Add(-time.Hour)
	saver.mu.Unlock()

	saver.periodicTick(context.Background())
	if gs.createCalls == 0 {
		t.Error("expected a push once the gap elapsed")
	}
}

func TestPeriodicTickSkipsEmptyBoard(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	gs := newStubStore()
	saver := NewSaver(state, gs, c, testLogger(), time.Minute, 0)

	saver.periodicTick(context.Background())
	if gs.createCalls != 0 {
		t.Errorf("expected no push with zero questions, got %d calls", gs.createCalls)
	}
}

func TestHydratePrefersRemote(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	gs := newStubStore()
	gs.games["abc"] = trivia.GameSnapshot{
		GameID:   "abc",
		GameDate: "2026-08-15",
		Players:  []trivia.Player{{ID: 1, Name: "Remote Team", Score: 700}},
	}
	c.SetActiveGame("abc")
	c.Save(trivia.GameSnapshot{Players: []trivia.Player{{ID: 1, Name: "Stale Local"}}})

	loader := NewLoader(state, gs, c, testLogger())
	source, err := loader.Hydrate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceRemote {
		t.Fatalf("expected remote hydration, got %s", source)
	}
	if state.Snapshot().Players[0].Name != "Remote Team" {
		t.Error("expected the remote snapshot, not the stale cache")
	}
}

func TestHydrateRequestedIDWins(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	gs := newStubStore()
	gs.games["wanted"] = trivia.GameSnapshot{GameID: "wanted", GameDate: "2026-08-01"}
	c.SetActiveGame("other")

	loader := NewLoader(state, gs, c, testLogger())
	source, err := loader.Hydrate(context.Background(), "wanted")
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceRemote || state.GameID() != "wanted" {
		t.Errorf("expected the requested game, got source=%s id=%q", source, state.GameID())
	}
}

func TestHydrateFallsBackToCache(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	gs := newStubStore()
	// Active game points at a row the store no longer has.
	c.SetActiveGame("gone")
	c.Save(trivia.GameSnapshot{
		GameDate: "2026-07-04",
		Players:  []trivia.Player{{ID: 1, Name: "Cached Team", Score: 300}},
	})

	loader := NewLoader(state, gs, c, testLogger())
	source, err := loader.Hydrate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceCache {
		t.Fatalf("expected cache fallback, got %s", source)
	}
	if state.Snapshot().Players[0].Name != "Cached Team" {
		t.Error("expected the cached snapshot")
	}
}

func TestHydrateFreshWhenNothingAvailable(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	loader := NewLoader(state, newStubStore(), c, testLogger())

	source, err := loader.Hydrate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceFresh {
		t.Fatalf("expected a fresh game, got %s", source)
	}
	snap := state.Snapshot()
	if len(snap.Players) != 2 || snap.Players[0].Name != "Team 1" {
		t.Errorf("expected the default players, got %+v", snap.Players)
	}
	if len(snap.Questions) != 0 {
		t.Error("expected an empty board")
	}
}

func TestHydrateFreshStartSuppressesCacheOnce(t *testing.T) {
	c := testCache(t)
	state := NewState(c, testLogger())
	gs := newStubStore()
	c.Save(trivia.GameSnapshot{Players: []trivia.Player{{ID: 1, Name: "Old Game"}}})
	c.SetFreshStart()

	loader := NewLoader(state, gs, c, testLogger())
	source, err := loader.Hydrate(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceFresh {
		t.Fatalf("fresh-start flag must skip the cache, got %s", source)
	}
}
