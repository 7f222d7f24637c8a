package server

import (
	"log/slog"

	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/trivia"
)

// SeedDemo fills an empty board with a small demo game for local
// development. Idempotent: does nothing once any question exists.
func SeedDemo(logger *slog.Logger, state *session.State) {
	if state.QuestionCount() > 0 {
		return
	}

	state.Hydrate(trivia.GameSnapshot{
		Players: append([]trivia.Player(nil), session.DefaultPlayers...),
		Categories: []trivia.CategoryDescription{
			{Category: "Space", Description: "The final frontier"},
			{Category: "Movies", Description: "Lights, camera"},
		},
		Questions: []trivia.Question{
			{ID: 1, Category: "Space", Points: 100, Question: "This planet is known as the Red Planet.", Answer: "What is Mars?"},
			{ID: 2, Category: "Space", Points: 200, Question: "The largest planet in our solar system.", Answer: "What is Jupiter?", BonusPoints: 50},
			{ID: 3, Category: "Movies", Points: 100, Question: "This 1977 film opens with a blockade runner chase.", Answer: "What is Star Wars?"},
			{ID: 4, Category: "Movies", Points: 200, Question: "He directed Jaws and E.T.", Answer: "Who is Steven Spielberg?"},
		},
	})

	logger.Info("demo board seeded")
}
