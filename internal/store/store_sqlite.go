package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codebyamos/triviaboard/internal/trivia"
)

// MediaSweeper removes a media file by its stored URL. DeleteGame uses it
// to clean up files referenced only by the deleted game.
type MediaSweeper interface {
	RemoveURL(url string) error
}

// retryBaseDelay is the first backoff step for CreateOrFindGame; it
// doubles on each retry (2s, 4s, 8s). Variable so tests can shrink it.
var retryBaseDelay = 2 * time.Second

const connectRetries = 3

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	media  MediaSweeper
}

// NewSQLiteStore wraps db. media may be nil, in which case DeleteGame
// skips the file sweep.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger, media MediaSweeper) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger, media: media}
}

func (s *SQLiteStore) CreateOrFindGame(ctx context.Context, gameDate, existingID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= connectRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			s.logger.Warn("game lookup failed, retrying", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		id, err := s.createOrFindGame(ctx, gameDate, existingID)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("creating or finding game: %w", lastErr)
}

func (s *SQLiteStore) createOrFindGame(ctx context.Context, gameDate, existingID string) (string, error) {
	// Connectivity check up front so offline errors surface as such
	// instead of as query failures mid-way.
	if err := s.db.PingContext(ctx); err != nil {
		return "", fmt.Errorf("pinging database: %w", err)
	}

	if existingID != "" {
		var id string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM games WHERE id = ?`, existingID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		// Stale id: fall through to the date lookup.
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM games WHERE game_date = ? ORDER BY created_at DESC LIMIT 1
	`, gameDate).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO games (id, game_date)
		VALUES (lower(hex(randomblob(16))), ?)
		RETURNING id
	`, gameDate).Scan(&id)
	return id, err
}

func (s *SQLiteStore) SavePlayers(ctx context.Context, gameID string, players []trivia.Player) error {
	return s.replace(ctx, "game_players", gameID, len(players), func(tx *sql.Tx) error {
		for _, p := range players {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO game_players (game_id, player_name, player_score, avatar_url)
				VALUES (?, ?, ?, NULLIF(?, ''))
			`, gameID, p.Name, p.Score, p.Avatar)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveQuestions(ctx context.Context, gameID string, questions []trivia.Question, answered []int) error {
	answeredSet := make(map[int]struct{}, len(answered))
	for _, id := range answered {
		answeredSet[id] = struct{}{}
	}

	return s.replace(ctx, "game_questions", gameID, len(questions), func(tx *sql.Tx) error {
		for _, q := range questions {
			isAnswered := 0
			if _, ok := answeredSet[q.ID]; ok {
				isAnswered = 1
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO game_questions
					(game_id, question_id, category, points, question, answer,
					 bonus_points, image_url, video_url, media_assignment, is_answered)
				VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
			`, gameID, q.ID, q.Category, q.Points, q.Question, q.Answer,
				q.BonusPoints, q.ImageURL, q.VideoURL, string(q.MediaOn), isAnswered)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveCategories(ctx context.Context, gameID string, categories []trivia.CategoryDescription) error {
	return s.replace(ctx, "game_categories", gameID, len(categories), func(tx *sql.Tx) error {
		for _, c := range categories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO game_categories (game_id, category_name, description)
				VALUES (?, ?, ?)
			`, gameID, c.Category, c.Description)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// replace swaps the full row set for gameID in table: delete everything,
// then reinsert. The whole swap runs in one transaction so a failed save
// can't leave a half-replaced set. After commit the row count is checked
// against the input size; a mismatch is logged, not corrected.
func (s *SQLiteStore) replace(ctx context.Context, table, gameID string, expected int, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if expected > 0 {
		if err := insert(tx); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s replace: %w", table, err)
	}

	var actual int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE game_id = ?`, gameID).Scan(&actual); err == nil {
		if actual != expected {
			s.logger.Warn("row count mismatch after save",
				"table", table, "game_id", gameID, "expected", expected, "actual", actual)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadGame(ctx context.Context, gameID string) (trivia.GameSnapshot, error) {
	var snap trivia.GameSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_date FROM games WHERE id = ?
	`, gameID).Scan(&snap.GameID, &snap.GameDate)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, err
	}

	if snap.Players, err = s.loadPlayers(ctx, gameID); err != nil {
		return snap, err
	}
	if snap.Questions, snap.Answered, err = s.loadQuestions(ctx, gameID); err != nil {
		return snap, err
	}
	if snap.Categories, err = s.loadCategories(ctx, gameID); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *SQLiteStore) loadPlayers(ctx context.Context, gameID string) ([]trivia.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_name, player_score, COALESCE(avatar_url, '')
		FROM game_players WHERE game_id = ? ORDER BY id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []trivia.Player
	for rows.Next() {
		var p trivia.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Score, &p.Avatar); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) loadQuestions(ctx context.Context, gameID string) ([]trivia.Question, []int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, category, points, question, answer, bonus_points,
			COALESCE(image_url, ''), COALESCE(video_url, ''), COALESCE(media_assignment, ''),
			is_answered
		FROM game_questions WHERE game_id = ? ORDER BY id
	`, gameID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var questions []trivia.Question
	var answered []int
	for rows.Next() {
		var q trivia.Question
		var media string
		var isAnswered int
		if err := rows.Scan(&q.ID, &q.Category, &q.Points, &q.Question, &q.Answer,
			&q.BonusPoints, &q.ImageURL, &q.VideoURL, &media, &isAnswered); err != nil {
			return nil, nil, err
		}
		q.MediaOn = trivia.MediaAssignment(media)
		questions = append(questions, q)
		if isAnswered != 0 {
			answered = append(answered, q.ID)
		}
	}
	return questions, answered, rows.Err()
}

func (s *SQLiteStore) loadCategories(ctx context.Context, gameID string) ([]trivia.CategoryDescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_name, description FROM game_categories WHERE game_id = ? ORDER BY id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []trivia.CategoryDescription
	for rows.Next() {
		var c trivia.CategoryDescription
		if err := rows.Scan(&c.Category, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLiteStore) LoadRecentGames(ctx context.Context, limit int) ([]trivia.GameSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM games ORDER BY game_date DESC, created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var games []trivia.GameSnapshot
	for _, id := range ids {
		snap, err := s.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		games = append(games, snap)
	}
	return games, nil
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]GameRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.game_date, COALESCE(g.game_code, ''), g.created_at,
			(SELECT COUNT(*) FROM game_players p WHERE p.game_id = g.id),
			(SELECT COUNT(*) FROM game_questions q WHERE q.game_id = g.id)
		FROM games g
		ORDER BY g.game_date DESC, g.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []GameRow{}
	for rows.Next() {
		var g GameRow
		if err := rows.Scan(&g.ID, &g.GameDate, &g.GameCode, &g.CreatedAt, &g.PlayerCount, &g.QuestionCount); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, gameID string) error {
	// Collect media referenced only by this game before the rows go away.
	orphans, err := s.orphanedMedia(ctx, gameID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"game_questions", "game_players", "game_categories"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, gameID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing game delete: %w", err)
	}

	if s.media != nil {
		for _, url := range orphans {
			if err := s.media.RemoveURL(url); err != nil {
				s.logger.Warn("media sweep failed", "url", url, "error", err)
			}
		}
	}
	return nil
}

// orphanedMedia returns image URLs used by gameID and no other game.
func (s *SQLiteStore) orphanedMedia(ctx context.Context, gameID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT image_url FROM game_questions
		WHERE game_id = ? AND image_url IS NOT NULL
			AND image_url NOT IN (
				SELECT image_url FROM game_questions
				WHERE game_id != ? AND image_url IS NOT NULL
			)
	`, gameID, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) ReferencedMedia(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT image_url FROM game_questions WHERE image_url IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referenced := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		referenced[url] = struct{}{}
	}
	return referenced, rows.Err()
}

func (s *SQLiteStore) ResolveGameCode(ctx context.Context, code string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM games WHERE game_code = ? COLLATE NOCASE
	`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func (s *SQLiteStore) SetGameCode(ctx context.Context, gameID, code string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE games SET game_code = NULLIF(?, '') WHERE id = ?
	`, code, gameID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveGameToHistory(ctx context.Context, players []trivia.Player, gameDate string) (string, error) {
	winner, ok := trivia.Winner(players)
	if !ok {
		return "", nil
	}

	var historyID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO completed_games (id, game_date, winner_name, winner_score)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?)
		RETURNING id
	`, gameDate, winner.Name, winner.Score).Scan(&historyID)
	if err != nil {
		return "", fmt.Errorf("inserting history record: %w", err)
	}

	// Player inserts are deliberately not part of a transaction with the
	// record above: a partial failure leaves the record standing and is
	// logged, matching the finalize semantics.
	for _, p := range players {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO completed_game_players (game_id, player_name, player_score, avatar_url)
			VALUES (?, ?, ?, NULLIF(?, ''))
		`, historyID, p.Name, p.Score, p.Avatar)
		if err != nil {
			s.logger.Error("history player insert failed",
				"history_id", historyID, "player", p.Name, "error", err)
		}
	}
	return historyID, nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context) ([]trivia.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_date, created_at, winner_name, winner_score
		FROM completed_games
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []trivia.HistoryRecord{}
	for rows.Next() {
		var r trivia.HistoryRecord
		if err := rows.Scan(&r.ID, &r.GameDate, &r.CreatedAt, &r.WinnerName, &r.WinnerScore); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		players, err := s.historyPlayers(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Players = players
	}
	return records, nil
}

func (s *SQLiteStore) historyPlayers(ctx context.Context, historyID string) ([]trivia.HistoryPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_name, player_score, COALESCE(avatar_url, '')
		FROM completed_game_players WHERE game_id = ? ORDER BY id
	`, historyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []trivia.HistoryPlayer{}
	for rows.Next() {
		var p trivia.HistoryPlayer
		if err := rows.Scan(&p.Name, &p.Score, &p.Avatar); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, id string) error {
	// completed_game_players cascades via foreign key.
	result, err := s.db.ExecContext(ctx, `DELETE FROM completed_games WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
