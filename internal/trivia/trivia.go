// Package trivia defines the core domain types for the board game.
// It has zero external dependencies; everything here is pure Go.
package trivia

import "strings"

// PointValues are the allowed point tiers on the board.
var PointValues = []int{100, 200, 300, 400, 500}

// MediaAssignment says on which side of a question its media is shown.
type MediaAssignment string

const (
	MediaOnQuestion MediaAssignment = "question"
	MediaOnAnswer   MediaAssignment = "answer"
	MediaOnBoth     MediaAssignment = "both"
)

type Question struct {
	ID          int             `json:"id"`
	Category    string          `json:"category"`
	Points      int             `json:"points"`
	Question    string          `json:"question"`
	Answer      string          `json:"answer"`
	BonusPoints int             `json:"bonusPoints,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	VideoURL    string          `json:"videoUrl,omitempty"`
	MediaOn     MediaAssignment `json:"mediaAssignment,omitempty"`
}

// CategoryDescription annotates a board category. Category references
// Question.Category; lookups match case-insensitively.
type CategoryDescription struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

type Player struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Avatar string `json:"avatar,omitempty"`
}

// GameSnapshot is the persisted unit, both in the local snapshot cache and
// in the relational store.
type GameSnapshot struct {
	GameID     string                `json:"gameId,omitempty"`
	GameDate   string                `json:"gameDate,omitempty"`
	Questions  []Question            `json:"questions"`
	Categories []CategoryDescription `json:"categoryDescriptions"`
	Players    []Player              `json:"players"`
	Answered   []int                 `json:"answeredQuestions"`
}

// HistoryPlayer is a player's final standing in a completed game.
type HistoryPlayer struct {
	Name   string `json:"playerName"`
	Score  int    `json:"playerScore"`
	Avatar string `json:"avatarUrl,omitempty"`
}

// HistoryRecord is the immutable outcome of a finalized game.
type HistoryRecord struct {
	ID          string          `json:"id"`
	GameDate    string          `json:"gameDate"`
	CreatedAt   string          `json:"createdAt"`
	WinnerName  string          `json:"winnerName"`
	WinnerScore int             `json:"winnerScore"`
	Players     []HistoryPlayer `json:"players"`
}

// Winner returns the player with the highest score. Ties go to the first
// player encountered in input order. ok is false for an empty slice.
func Winner(players []Player) (winner Player, ok bool) {
	for i, p := range players {
		if i == 0 || p.Score > winner.Score {
			winner = p
			ok = true
		}
	}
	return winner, ok
}

// QuestionAt returns the first question matching the (category, points)
// cell. Duplicate cells are possible; the board shows the first match.
func QuestionAt(questions []Question, category string, points int) (Question, bool) {
	for _, q := range questions {
		if q.Points == points && strings.EqualFold(q.Category, category) {
			return q, true
		}
	}
	return Question{}, false
}

// DescriptionFor finds the description for a category, matching
// case-insensitively.
func DescriptionFor(categories []CategoryDescription, category string) (string, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Category, category) {
			return c.Description, true
		}
	}
	return "", false
}

// ValidPoints reports whether points is one of the board's tiers.
func ValidPoints(points int) bool {
	for _, v := range PointValues {
		if points == v {
			return true
		}
	}
	return false
}
