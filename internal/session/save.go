package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/store"
)

// ErrSaveInFlight is returned when a save is requested while another is
// still running. Overlapping saves are dropped, not queued.
var ErrSaveInFlight = errors.New("a save is already in progress")

const manualAttempts = 3

// Saver pushes the in-memory state to the relational store: on a timer,
// on editor auto-save signals, and on manual request. The loop ticks
// every checkEvery but only acts once minGap has elapsed since the last
// successful push, so a manual save resets the gate without rescheduling
// the timer.
type Saver struct {
	state  *State
	store  store.GameStore
	cache  *cache.Store
	logger *slog.Logger

	checkEvery time.Duration
	minGap     time.Duration

	// retryDelay is the fixed spacing between manual-save attempts.
	// Variable so tests can shrink it.
	retryDelay time.Duration

	saving atomic.Bool

	mu        sync.Mutex
	lastSaved time.Time
}

func NewSaver(state *State, gs store.GameStore, c *cache.Store, logger *slog.Logger, checkEvery, minGap time.Duration) *Saver {
	return &Saver{
		state:      state,
		store:      gs,
		cache:      c,
		logger:     logger,
		checkEvery: checkEvery,
		minGap:     minGap,
		retryDelay: 2 * time.Second,
	}
}

// Run drives periodic and auto-save pushes until ctx is done.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.periodicTick(ctx)
		case <-s.state.AutoSave():
			s.autoSavePush(ctx)
		}
	}
}

// periodicTick pushes only when the gate is open: at least minGap since
// the last successful push and at least one question in memory. A failed
// periodic push is logged and abandoned until the next tick.
func (s *Saver) periodicTick(ctx context.Context) {
	if s.state.QuestionCount() == 0 {
		return
	}
	s.mu.Lock()
	due := time.Since(s.lastSaved) >= s.minGap
	s.mu.Unlock()
	if !due {
		return
	}

	if !s.saving.CompareAndSwap(false, true) {
		return
	}
	defer s.saving.Store(false)

	if err := s.push(ctx); err != nil {
		s.logger.Warn("periodic save failed, will retry on a later tick", "error", err)
		return
	}
	s.markSaved()
	s.logger.Info("periodic save complete")
}

// autoSavePush is an editor-triggered immediate push. Failures are
// logged; the cache still holds the edit.
func (s *Saver) autoSavePush(ctx context.Context) {
	if !s.saving.CompareAndSwap(false, true) {
		// An in-flight save will carry the current state anyway.
		return
	}
	defer s.saving.Store(false)

	if err := s.push(ctx); err != nil {
		s.logger.Warn("auto-save failed", "error", err)
		return
	}
	s.markSaved()
	s.logger.Info("auto-save complete")
}

// ManualSave pushes now, bypassing the minGap gate. It retries up to
// manualAttempts times with a fixed delay before surfacing the error.
// On success the cache is cleared and the gate timestamp reset; on
// failure local data stays intact as the durable source of truth.
func (s *Saver) ManualSave(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInFlight
	}
	defer s.saving.Store(false)

	var lastErr error
	for attempt := 1; attempt <= manualAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
		if lastErr = s.push(ctx); lastErr == nil {
			s.markSaved()
			return nil
		}
		s.logger.Warn("manual save attempt failed", "attempt", attempt, "error", lastErr)
	}
	return lastErr
}

// push sends the whole snapshot: resolve the game row, then replace
// players, questions and categories in that order. Any sub-step failure
// fails the push; no partial success is recorded.
func (s *Saver) push(ctx context.Context) error {
	snap := s.state.Snapshot()

	gameID, err := s.store.CreateOrFindGame(ctx, snap.GameDate, snap.GameID)
	if err != nil {
		return err
	}
	s.state.SetGameID(gameID)
	s.cache.SetActiveGame(gameID)

	if err := s.store.SavePlayers(ctx, gameID, snap.Players); err != nil {
		return err
	}
	if err := s.store.SaveQuestions(ctx, gameID, snap.Questions, snap.Answered); err != nil {
		return err
	}
	if err := s.store.SaveCategories(ctx, gameID, snap.Categories); err != nil {
		return err
	}
	return nil
}

// markSaved resets the periodic gate and clears the cache: a successful
// remote push is the only event that empties it.
func (s *Saver) markSaved() {
	s.mu.Lock()
	s.lastSaved = time.Now()
	s.mu.Unlock()
	s.cache.Clear()
}

// LastSaved reports when the last successful push completed.
func (s *Saver) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}
