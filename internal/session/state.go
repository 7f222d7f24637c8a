// Package session owns the live game: the in-memory state container and
// the orchestrators that move it between the local snapshot cache and the
// relational store.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

var (
	ErrNoSuchQuestion = errors.New("no such question")
	ErrNoSuchPlayer   = errors.New("no such player")
	ErrNoSuchCategory = errors.New("no such category")
	ErrNothingToScore = errors.New("no closed question awaiting scoring")
)

// DefaultPlayers seed a fresh empty game.
var DefaultPlayers = []trivia.Player{
	{ID: 1, Name: "Team 1"},
	{ID: 2, Name: "Team 2"},
}

// State is the single mutable game state. Every mutator updates memory
// and writes through to the snapshot cache before returning, so the cache
// is never lagging. Editor-grade mutations additionally signal the save
// orchestrator for an immediate remote push.
type State struct {
	cache  *cache.Store
	logger *slog.Logger

	mu         sync.Mutex
	gameID     string
	gameDate   string
	questions  []trivia.Question
	categories []trivia.CategoryDescription
	players    []trivia.Player
	answered   map[int]struct{}

	// selected is the question whose modal is open or awaiting scoring;
	// 0 means none. Closing the modal (not opening it) marks the question
	// answered and raises the scoring prompt.
	selected     int
	questionOpen bool
	scoringOpen  bool

	autoSave chan struct{}
}

func NewState(c *cache.Store, logger *slog.Logger) *State {
	return &State{
		cache:    c,
		logger:   logger,
		gameDate: time.Now().Format("2006-01-02"),
		answered: make(map[int]struct{}),
		autoSave: make(chan struct{}, 1),
	}
}

// AutoSave signals when an editor mutation wants an immediate remote
// push. The channel holds at most one pending signal.
func (s *State) AutoSave() <-chan struct{} {
	return s.autoSave
}

func (s *State) requestAutoSave() {
	select {
	case s.autoSave <- struct{}{}:
	default:
	}
}

// Hydrate replaces the whole state with snap and warms the cache with it.
func (s *State) Hydrate(snap trivia.GameSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gameID = snap.GameID
	s.gameDate = snap.GameDate
	if s.gameDate == "" {
		s.gameDate = time.Now().Format("2006-01-02")
	}
	s.questions = append([]trivia.Question(nil), snap.Questions...)
	s.categories = append([]trivia.CategoryDescription(nil), snap.Categories...)
	s.players = append([]trivia.Player(nil), snap.Players...)
	s.answered = make(map[int]struct{}, len(snap.Answered))
	for _, id := range snap.Answered {
		s.answered[id] = struct{}{}
	}
	s.selected = 0
	s.questionOpen = false
	s.scoringOpen = false

	s.persistLocked()
}

// Reset clears the board to a fresh empty game with the default players.
func (s *State) Reset() {
	s.Hydrate(trivia.GameSnapshot{
		GameDate: time.Now().Format("2006-01-02"),
		Players:  append([]trivia.Player(nil), DefaultPlayers...),
	})
}

// Snapshot returns a copy of the current persisted unit.
func (s *State) Snapshot() trivia.GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() trivia.GameSnapshot {
	answered := make([]int, 0, len(s.answered))
	for id := range s.answered {
		answered = append(answered, id)
	}
	sort.Ints(answered)

	return trivia.GameSnapshot{
		GameID:     s.gameID,
		GameDate:   s.gameDate,
		Questions:  append([]trivia.Question(nil), s.questions...),
		Categories: append([]trivia.CategoryDescription(nil), s.categories...),
		Players:    append([]trivia.Player(nil), s.players...),
		Answered:   answered,
	}
}

// persistLocked writes through to the snapshot cache. Must hold mu.
func (s *State) persistLocked() {
	s.cache.Save(s.snapshotLocked())
}

func (s *State) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// SetGameID records the server-generated id once a remote save creates
// the game row.
func (s *State) SetGameID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameID == id {
		return
	}
	s.gameID = id
	s.persistLocked()
}

func (s *State) GameDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameDate
}

func (s *State) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// Modals reports the selected question id and modal visibility.
func (s *State) Modals() (selected int, questionOpen, scoringOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.questionOpen, s.scoringOpen
}

// SelectQuestion opens the question modal. The question is not marked
// answered yet; that happens on close.
func (s *State) SelectQuestion(id int) (trivia.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.findQuestionLocked(id)
	if !ok {
		return trivia.Question{}, ErrNoSuchQuestion
	}
	s.selected = id
	s.questionOpen = true
	s.scoringOpen = false
	s.persistLocked()
	return q, nil
}

// CloseQuestion closes the open modal, marks the question answered and
// raises the scoring prompt. Scoring happens after viewing, not before.
func (s *State) CloseQuestion() (trivia.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.questionOpen || s.selected == 0 {
		return trivia.Question{}, ErrNoSuchQuestion
	}
	q, ok := s.findQuestionLocked(s.selected)
	if !ok {
		return trivia.Question{}, ErrNoSuchQuestion
	}
	s.answered[s.selected] = struct{}{}
	s.questionOpen = false
	s.scoringOpen = true
	s.persistLocked()
	return q, nil
}

// AwardPoints gives the closed question's points (plus bonus when asked)
// to a player and dismisses the scoring prompt.
func (s *State) AwardPoints(playerID int, includeBonus bool) (trivia.Player, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scoringOpen || s.selected == 0 {
		return trivia.Player{}, 0, ErrNothingToScore
	}
	q, ok := s.findQuestionLocked(s.selected)
	if !ok {
		return trivia.Player{}, 0, ErrNoSuchQuestion
	}

	points := q.Points
	if includeBonus {
		points += q.BonusPoints
	}

	for i := range s.players {
		if s.players[i].ID == playerID {
			s.players[i].Score += points
			s.selected = 0
			s.scoringOpen = false
			s.persistLocked()
			return s.players[i], points, nil
		}
	}
	return trivia.Player{}, 0, ErrNoSuchPlayer
}

// DismissScoring closes the scoring prompt without awarding anything.
func (s *State) DismissScoring() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = 0
	s.scoringOpen = false
	s.persistLocked()
}

// AdjustScore adds delta to a player's score. Scores may go negative.
func (s *State) AdjustScore(playerID, delta int) (trivia.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.players {
		if s.players[i].ID == playerID {
			s.players[i].Score += delta
			s.persistLocked()
			return s.players[i], nil
		}
	}
	return trivia.Player{}, ErrNoSuchPlayer
}

// UpsertPlayer replaces a player by id, or appends with the next free id
// when p.ID is zero.
func (s *State) UpsertPlayer(p trivia.Player) trivia.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextPlayerIDLocked()
		s.players = append(s.players, p)
		s.persistLocked()
		return p
	}
	for i := range s.players {
		if s.players[i].ID == p.ID {
			s.players[i] = p
			s.persistLocked()
			return p
		}
	}
	s.players = append(s.players, p)
	s.persistLocked()
	return p
}

func (s *State) RemovePlayer(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.players {
		if s.players[i].ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			s.persistLocked()
			return nil
		}
	}
	return ErrNoSuchPlayer
}

// UpsertQuestion replaces a question by id or appends a new one. Editor
// mutation: requests an immediate remote push.
func (s *State) UpsertQuestion(q trivia.Question) trivia.Question {
	s.mu.Lock()

	if q.ID == 0 {
		q.ID = s.nextQuestionIDLocked()
		s.questions = append(s.questions, q)
	} else {
		replaced := false
		for i := range s.questions {
			if s.questions[i].ID == q.ID {
				s.questions[i] = q
				replaced = true
				break
			}
		}
		if !replaced {
			s.questions = append(s.questions, q)
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.requestAutoSave()
	return q
}

// RemoveQuestion filters the question out and prunes its answered mark.
func (s *State) RemoveQuestion(id int) error {
	s.mu.Lock()

	found := false
	for i := range s.questions {
		if s.questions[i].ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrNoSuchQuestion
	}

	delete(s.answered, id)
	if s.selected == id {
		s.selected = 0
		s.questionOpen = false
		s.scoringOpen = false
	}
	s.persistLocked()
	s.mu.Unlock()

	s.requestAutoSave()
	return nil
}

// UpsertCategory replaces a category description (case-insensitive match
// on the category name) or appends a new one.
func (s *State) UpsertCategory(c trivia.CategoryDescription) trivia.CategoryDescription {
	s.mu.Lock()

	replaced := false
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Category, c.Category) {
			s.categories[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.categories = append(s.categories, c)
	}
	s.persistLocked()
	s.mu.Unlock()

	s.requestAutoSave()
	return c
}

func (s *State) RemoveCategory(name string) error {
	s.mu.Lock()

	found := false
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Category, name) {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			found = true
			break
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	if !found {
		return ErrNoSuchCategory
	}
	s.requestAutoSave()
	return nil
}

func (s *State) findQuestionLocked(id int) (trivia.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return trivia.Question{}, false
}

func (s *State) nextQuestionIDLocked() int {
	next := 1
	for _, q := range s.questions {
		if q.ID >= next {
			next = q.ID + 1
		}
	}
	return next
}

func (s *State) nextPlayerIDLocked() int {
	next := 1
	for _, p := range s.players {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}
