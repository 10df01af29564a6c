package handlers

import (
	"llm-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, generationService *services.GenerationService, evaluationService *services.EvaluationService) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "LLM Tournament API"})
	})
	app.Get("/test-stream", generationService.TestStream)
	app.Get("/ai-evaluation-schema", evaluationService.GetEvaluationSchema)

	// Tournament CRUD
	app.Post("/tournaments", tournamentService.CreateTournament)
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Delete("/tournaments/:id", tournamentService.DeleteTournament)

	// Prompts
	app.Get("/tournaments/:id/prompts", tournamentService.GetTournamentPrompts)
	app.Post("/tournaments/:id/prompts", tournamentService.AddPrompt)
	app.Delete("/tournaments/:id/prompts/:prompt_id", tournamentService.DeletePrompt)

	// Generation (SSE). GET for EventSource clients, POST for JSON bodies.
	app.Get("/tournaments/:id/auto-generate", generationService.AutoGenerate)
	app.Post("/tournaments/:id/auto-generate", generationService.AutoGenerate)
	app.Get("/tournaments/:id/auto-generate-all", generationService.AutoGenerateAll)
	app.Post("/tournaments/:id/auto-generate-all", generationService.AutoGenerateAll)

	// Results and scoring
	app.Post("/tournaments/:id/results", tournamentService.SubmitResult)
	app.Post("/tournaments/:id/score", tournamentService.ScoreResult)
	app.Post("/tournaments/:id/auto-score", evaluationService.AutoScore)
	app.Post("/tournaments/:id/auto-score-all", evaluationService.AutoScoreAll)
	app.Get("/tournaments/:id/results", tournamentService.GetTournamentResults)
	app.Get("/tournaments/:id/leaderboard", tournamentService.GetLeaderboard)
}
