package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"llm-tournament-system/llm"
	"llm-tournament-system/models"
	"llm-tournament-system/store"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const evaluatorSystemPrompt = "You are an expert AI evaluator. Evaluate responses based on quality, relevance, clarity, and completeness. Always provide constructive feedback."

// Score applied when the judge's output yields no parsable score at all.
// A parse miss is a degraded success, not an error.
const fallbackScore = 7.0

// Matches "<number>/10" or "score: <number>" in lowercased critique text.
var scorePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10|score[:\s]*(\d+(?:\.\d+)?)`)

type EvaluationService struct {
	Store   *store.Store
	LLM     llm.Client
	Model   string
	Timeout time.Duration
	// Spacing between judge calls in bulk mode, to stay under provider
	// rate limits.
	Delay time.Duration
}

func NewEvaluationService(st *store.Store, client llm.Client, model string, timeout, delay time.Duration) *EvaluationService {
	return &EvaluationService{Store: st, LLM: client, Model: model, Timeout: timeout, Delay: delay}
}

// judgeVerdict is the structured form the judge is asked to answer in.
// The regex extraction below is the compatibility shim for judges that
// answer in free text anyway.
type judgeVerdict struct {
	Score               float64  `json:"score"`
	Feedback            string   `json:"feedback"`
	Reasoning           string   `json:"reasoning"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	RelevanceScore      float64  `json:"relevance_score"`
	ClarityScore        float64  `json:"clarity_score"`
}

func buildJudgePrompt(question, promptContent, response string) string {
	return fmt.Sprintf(`Tournament Question: %s
Prompt: %s
Response to Evaluate: %s

Evaluate this response and answer with a single JSON object with these keys:
- "score": number from 1-10 (1-3=poor, 4-6=adequate, 7-8=good, 9-10=excellent)
- "feedback": brief feedback explaining the score
- "reasoning": detailed reasoning with specific examples from the response
- "strengths": list of 2-3 specific strengths
- "areas_for_improvement": list of 2-3 specific areas to improve
- "relevance_score": how relevant the response is to the prompt (1-10)
- "clarity_score": how clear and well-structured the response is (1-10)

If you cannot answer in JSON, state the score as "<number>/10" in plain text.`,
		question, promptContent, response)
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// parseVerdict extracts a score (and, when available, structured
// metrics) from the judge's critique. Order: structured JSON, then the
// regex shim, then the neutral fallback.
func parseVerdict(critique string) (float64, *models.EvaluationMetrics) {
	if start := strings.Index(critique, "{"); start >= 0 {
		if end := strings.LastIndex(critique, "}"); end > start {
			var v judgeVerdict
			if err := json.Unmarshal([]byte(critique[start:end+1]), &v); err == nil && v.Score > 0 {
				return clampScore(v.Score), &models.EvaluationMetrics{
					Reasoning:           v.Reasoning,
					Strengths:           v.Strengths,
					AreasForImprovement: v.AreasForImprovement,
					RelevanceScore:      v.RelevanceScore,
					ClarityScore:        v.ClarityScore,
				}
			}
		}
	}

	if m := scorePattern.FindStringSubmatch(strings.ToLower(critique)); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return clampScore(v), nil
		}
	}

	return fallbackScore, nil
}

// evaluate asks the judge for a verdict on the result and writes the
// score and feedback back onto the stored result. A failed provider call
// is fatal to the invocation; only parse misses fall back.
func (s *EvaluationService) evaluate(ctx context.Context, tournament *models.Tournament, prompt *models.Prompt, result *models.Result) (*models.Result, error) {
	if s.LLM == nil {
		return nil, llm.ErrNotConfigured
	}

	critique, err := s.LLM.Complete(ctx, s.Model, evaluatorSystemPrompt,
		buildJudgePrompt(tournament.Question, prompt.Content, result.Response))
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	score, metrics := parseVerdict(critique)
	now := time.Now().UTC()

	result.Score = &score
	result.Feedback = critique
	result.AIEvaluated = true
	result.EvaluationTimestamp = &now
	result.EvaluationMetrics = metrics
	s.Store.PutResult(result)

	log.Printf("🤖 AI scored result %s with score %.1f/10", result.ID, score)
	return result, nil
}

// ScoreStoredResult looks up the entities for a (tournament, prompt,
// result) triple and runs an evaluation. Used for the chained scoring
// step after generation.
func (s *EvaluationService) ScoreStoredResult(ctx context.Context, tournamentID, promptID, resultID string) (*models.Result, error) {
	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return nil, fmt.Errorf("tournament %s not found", tournamentID)
	}
	result, ok := s.Store.GetResult(resultID)
	if !ok || result.TournamentID != tournamentID || result.PromptID != promptID {
		return nil, fmt.Errorf("result %s not found", resultID)
	}
	prompt, ok := s.Store.GetPrompt(promptID)
	if !ok {
		return nil, fmt.Errorf("prompt %s not found", promptID)
	}
	return s.evaluate(ctx, tournament, prompt, result)
}

type autoScoreRequest struct {
	PromptID string `json:"prompt_id"`
	ResultID string `json:"result_id"`
}

func (s *EvaluationService) AutoScore(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var req autoScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PromptID == "" || req.ResultID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "prompt_id and result_id are required"})
	}

	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	result, ok := s.Store.GetResult(req.ResultID)
	if !ok || result.TournamentID != tournamentID || result.PromptID != req.PromptID {
		return c.Status(404).JSON(fiber.Map{"error": "Result not found"})
	}
	prompt, ok := s.Store.GetPrompt(req.PromptID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}
	if s.LLM == nil {
		return c.Status(500).JSON(fiber.Map{"error": "OpenAI API key not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), s.Timeout)
	defer cancel()

	updated, err := s.evaluate(ctx, tournament, prompt, result)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": fmt.Sprintf("AI scoring failed: %v", err)})
	}

	return c.JSON(fiber.Map{
		"result_id":          updated.ID,
		"score":              updated.Score,
		"feedback":           updated.Feedback,
		"ai_evaluated":       true,
		"evaluation_metrics": updated.EvaluationMetrics,
	})
}

func (s *EvaluationService) AutoScoreAll(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	if s.LLM == nil {
		return c.Status(500).JSON(fiber.Map{"error": "OpenAI API key not configured"})
	}

	unscored := s.Store.UnscoredResults(tournamentID)
	if len(unscored) == 0 {
		return c.JSON(fiber.Map{"message": "All responses are already scored", "scored_count": 0})
	}

	limiter := rate.NewLimiter(rate.Every(s.Delay), 1)
	scored, failed := 0, 0
	for _, result := range unscored {
		if err := limiter.Wait(c.Context()); err != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(c.Context(), s.Timeout)
		_, err := s.ScoreStoredResult(callCtx, tournamentID, result.PromptID, result.ID)
		cancel()
		if err != nil {
			log.Printf("⚠️  Failed to score result %s: %v", result.ID, err)
			failed++
			continue
		}
		scored++
	}

	s.Store.Flush()

	return c.JSON(fiber.Map{
		"message":        "AI scoring completed",
		"total_unscored": len(unscored),
		"scored_count":   scored,
		"failed_count":   failed,
	})
}

// GetEvaluationSchema describes the structured form judges are asked to
// answer in.
func (s *EvaluationService) GetEvaluationSchema(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"description": "Schema for AI evaluation responses",
		"schema": fiber.Map{
			"type":     "object",
			"required": []string{"score", "feedback"},
			"properties": fiber.Map{
				"score":                 fiber.Map{"type": "number", "minimum": 1, "maximum": 10, "description": "Score from 1-10 where 1-3=poor, 4-6=adequate, 7-8=good, 9-10=excellent"},
				"feedback":              fiber.Map{"type": "string", "description": "Brief feedback explaining the score"},
				"reasoning":             fiber.Map{"type": "string", "description": "Detailed reasoning including specific examples from the response"},
				"strengths":             fiber.Map{"type": "array", "items": fiber.Map{"type": "string"}},
				"areas_for_improvement": fiber.Map{"type": "array", "items": fiber.Map{"type": "string"}},
				"relevance_score":       fiber.Map{"type": "number", "minimum": 1, "maximum": 10},
				"clarity_score":         fiber.Map{"type": "number", "minimum": 1, "maximum": 10},
			},
		},
	})
}
