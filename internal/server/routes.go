package server

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/codebyamos/triviaboard/internal/media"
)

func addRoutes(r chi.Router, app *App) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("TriviaBoard API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(app.Logger, app.DB))

	r.Post("/api/unlock", handleUnlock(app))

	// Game routes, behind the passcode gate.
	r.Route("/api/game", func(r chi.Router) {
		r.Use(sessionMiddleware(app))

		r.Post("/join", handleJoin(app))
		r.Get("/state", handleGameState(app))
		r.Get("/events", handleEvents(app))
		r.Get("/recent", handleRecentGames(app))

		r.Post("/select", handleSelectQuestion(app))
		r.Post("/close", handleCloseQuestion(app))
		r.Post("/award", handleAwardPoints(app))
		r.Post("/dismiss", handleDismissScoring(app))

		r.Put("/players", handleUpsertPlayer(app))
		r.Delete("/players/{id}", handleDeletePlayer(app))
		r.Post("/players/{id}/score", handleAdjustScore(app))

		r.Put("/questions", handleUpsertQuestion(app))
		r.Delete("/questions/{id}", handleDeleteQuestion(app))
		r.Put("/categories", handleUpsertCategory(app))
		r.Delete("/categories/{name}", handleDeleteCategory(app))
		r.Post("/media", handleMediaUpload(app))

		r.Post("/save", handleManualSave(app))
		r.Post("/new", handleNewGame(app))
		r.Post("/code", handleSetGameCode(app))
	})

	// History sits behind the same gate.
	r.Route("/api/history", func(r chi.Router) {
		r.Use(sessionMiddleware(app))
		r.Get("/", handleListHistory(app))
		r.Delete("/{id}", handleDeleteHistory(app))
	})

	// Admin cleanup utility. Fixed path, gated like everything else.
	r.Route("/admin/cleanup", func(r chi.Router) {
		r.Use(sessionMiddleware(app))
		r.Get("/", handleCleanupList(app))
		r.Post("/games", handleCleanupGames(app))
		r.Post("/media", handleCleanupMedia(app))
	})

	if app.Media != nil {
		fileServer := http.FileServer(http.Dir(app.Media.Dir()))
		r.Handle(media.URLPrefix+"*", http.StripPrefix(media.URLPrefix, fileServer))
	}

	if app.SPADir != "" {
		if info, err := os.Stat(app.SPADir); err == nil && info.IsDir() {
			app.Logger.Info("serving SPA", "dir", app.SPADir)
			r.NotFound(handleSPA(app.SPADir))
		}
	}
}
