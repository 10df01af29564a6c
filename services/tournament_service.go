package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"llm-tournament-system/models"
	"llm-tournament-system/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type TournamentService struct {
	Store *store.Store
}

func NewTournamentService(st *store.Store) *TournamentService {
	return &TournamentService{Store: st}
}

// newTournamentID derives a readable, unique ID from the tournament name.
func newTournamentID(name string) string {
	suffix := uuid.NewString()[:8]
	base := slug.Make(name)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

type createPromptRequest struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type createTournamentRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Question    string                `json:"question"`
	Prompts     []createPromptRequest `json:"prompts"`
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Question) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and question are required"})
	}

	prompts := make([]*models.Prompt, 0, len(req.Prompts))
	promptIDs := make([]string, 0, len(req.Prompts))
	for _, p := range req.Prompts {
		prompt := &models.Prompt{
			ID:          uuid.NewString(),
			Name:        p.Name,
			Content:     p.Content,
			Description: p.Description,
		}
		prompts = append(prompts, prompt)
		promptIDs = append(promptIDs, prompt.ID)
	}

	tournament := &models.Tournament{
		ID:          newTournamentID(req.Name),
		Name:        req.Name,
		Description: req.Description,
		Question:    req.Question,
		PromptIDs:   promptIDs,
		CreatedAt:   time.Now().UTC(),
		Status:      models.TournamentStatusActive,
	}

	s.Store.CreateTournament(tournament, prompts)
	log.Printf("✅ Created tournament '%s' with %d prompts", tournament.Name, len(prompts))

	return c.JSON(fiber.Map{"tournament_id": tournament.ID, "tournament": tournament})
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	return c.JSON(s.Store.ListTournaments())
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	tournament, ok := s.Store.GetTournament(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	return c.JSON(tournament)
}

func (s *TournamentService) DeleteTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	promptsDeleted, resultsDeleted, _ := s.Store.DeleteTournament(tournamentID)
	log.Printf("🗑️  Deleted tournament '%s' with %d prompts and %d results",
		tournament.Name, promptsDeleted, resultsDeleted)

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Tournament '%s' deleted successfully", tournament.Name),
	})
}

func (s *TournamentService) GetTournamentPrompts(c *fiber.Ctx) error {
	prompts, ok := s.Store.PromptsForTournament(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	return c.JSON(prompts)
}

func (s *TournamentService) AddPrompt(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var req createPromptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt name is required"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt content is required"})
	}

	prompt := &models.Prompt{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Content:     strings.TrimSpace(req.Content),
		Description: req.Description,
	}
	if err := s.Store.AttachPrompt(tournamentID, prompt); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	log.Printf("📝 Added prompt '%s' to tournament %s", prompt.Name, tournamentID)
	return c.JSON(fiber.Map{"prompt_id": prompt.ID, "prompt": prompt})
}

func (s *TournamentService) DeletePrompt(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	promptID := c.Params("prompt_id")

	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	prompt, ok := s.Store.GetPrompt(promptID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}
	if !containsID(tournament.PromptIDs, promptID) {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt does not belong to this tournament"})
	}

	resultsDeleted, _ := s.Store.DeletePrompt(promptID)
	log.Printf("🗑️  Deleted prompt '%s' from tournament '%s' (%d results removed)",
		prompt.Name, tournament.Name, resultsDeleted)

	return c.JSON(fiber.Map{
		"message":         fmt.Sprintf("Prompt '%s' deleted successfully", prompt.Name),
		"deleted_results": resultsDeleted,
	})
}

type submitResultRequest struct {
	PromptID string   `json:"prompt_id"`
	Response string   `json:"response"`
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// SubmitResult stores a manually produced result. Prompt existence is
// deliberately not checked here; only the generation and evaluation
// entry points enforce it.
func (s *TournamentService) SubmitResult(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var req submitResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	result := &models.Result{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		PromptID:     req.PromptID,
		Response:     req.Response,
		Score:        req.Score,
		Feedback:     req.Feedback,
		CreatedAt:    time.Now().UTC(),
	}
	s.Store.PutResult(result)

	return c.JSON(fiber.Map{"result_id": result.ID, "result": result})
}

func (s *TournamentService) GetTournamentResults(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	results := s.Store.ResultsForTournament(tournamentID)
	if results == nil {
		results = []*models.Result{}
	}
	return c.JSON(results)
}

type scoreRequest struct {
	PromptID string   `json:"prompt_id"`
	ResultID string   `json:"result_id"`
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// ScoreResult applies a manual score. When result_id is given the result
// is addressed directly; otherwise the oldest result for the
// (tournament, prompt) pair is updated, matching the original client's
// expectations when only one result exists per pair.
func (s *TournamentService) ScoreResult(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Score == nil {
		return c.Status(400).JSON(fiber.Map{"error": "score is required"})
	}

	var result *models.Result
	if req.ResultID != "" {
		r, ok := s.Store.GetResult(req.ResultID)
		if !ok || r.TournamentID != tournamentID {
			return c.Status(404).JSON(fiber.Map{"error": "Result not found"})
		}
		result = r
	} else {
		if req.PromptID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "prompt_id or result_id is required"})
		}
		r, ok := s.Store.FirstResultForPair(tournamentID, req.PromptID)
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "Result not found"})
		}
		result = r
	}

	result.Score = req.Score
	result.Feedback = req.Feedback
	s.Store.PutResult(result)

	return c.JSON(fiber.Map{"message": "Score updated successfully", "result_id": result.ID})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
