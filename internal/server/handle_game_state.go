package server

import (
	"net/http"
	"time"

	"github.com/codebyamos/triviaboard/internal/trivia"
)

// BoardCell is one (category, points) cell of the grid.
type BoardCell struct {
	Points     int  `json:"points"`
	QuestionID int  `json:"questionId,omitempty"`
	Answered   bool `json:"answered"`
}

// BoardColumn is one category column with its point tiers.
type BoardColumn struct {
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
	Cells       []BoardCell `json:"cells"`
}

type GameStateResponse struct {
	GameID     string                       `json:"gameId,omitempty"`
	GameDate   string                       `json:"gameDate"`
	Board      []BoardColumn                `json:"board"`
	Players    []trivia.Player              `json:"players"`
	Questions  []trivia.Question            `json:"questions"`
	Categories []trivia.CategoryDescription `json:"categoryDescriptions"`
	Answered   []int                        `json:"answeredQuestions"`

	SelectedQuestion  *trivia.Question `json:"selectedQuestion,omitempty"`
	QuestionModalOpen bool             `json:"questionModalOpen"`
	ScoringPromptOpen bool             `json:"scoringPromptOpen"`

	LastSaved string `json:"lastSaved,omitempty"`
}

func handleGameState(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := app.State.Snapshot()
		selectedID, questionOpen, scoringOpen := app.State.Modals()

		resp := GameStateResponse{
			GameID:            snap.GameID,
			GameDate:          snap.GameDate,
			Board:             buildBoard(snap),
			Players:           snap.Players,
			Questions:         snap.Questions,
			Categories:        snap.Categories,
			Answered:          snap.Answered,
			QuestionModalOpen: questionOpen,
			ScoringPromptOpen: scoringOpen,
		}
		if resp.Players == nil {
			resp.Players = []trivia.Player{}
		}
		if resp.Questions == nil {
			resp.Questions = []trivia.Question{}
		}
		if resp.Categories == nil {
			resp.Categories = []trivia.CategoryDescription{}
		}
		if resp.Answered == nil {
			resp.Answered = []int{}
		}

		if selectedID != 0 {
			for i := range snap.Questions {
				if snap.Questions[i].ID == selectedID {
					resp.SelectedQuestion = &snap.Questions[i]
					break
				}
			}
		}

		if last := app.Saver.LastSaved(); !last.IsZero() {
			resp.LastSaved = last.UTC().Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// buildBoard lays the questions out as category columns with one cell
// per point tier. Duplicate (category, points) pairs keep the first
// match, mirroring how the grid renders them.
func buildBoard(snap trivia.GameSnapshot) []BoardColumn {
	answered := make(map[int]struct{}, len(snap.Answered))
	for _, id := range snap.Answered {
		answered[id] = struct{}{}
	}

	var order []string
	seen := make(map[string]struct{})
	for _, q := range snap.Questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		order = append(order, q.Category)
	}

	columns := []BoardColumn{}
	for _, category := range order {
		col := BoardColumn{Category: category}
		if desc, ok := trivia.DescriptionFor(snap.Categories, category); ok {
			col.Description = desc
		}
		for _, points := range trivia.PointValues {
			cell := BoardCell{Points: points}
			if q, ok := trivia.QuestionAt(snap.Questions, category, points); ok {
				cell.QuestionID = q.ID
				_, cell.Answered = answered[q.ID]
			}
			col.Cells = append(col.Cells, cell)
		}
		columns = append(columns, col)
	}
	return columns
}
