package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"llm-tournament-system/llm"
	"llm-tournament-system/models"
	"llm-tournament-system/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const generationSystemPrompt = "You are a helpful AI assistant. Please provide a comprehensive and well-reasoned response to the following prompt and question."

// Appended to a response that was persisted after a mid-stream failure.
const truncationMarker = "\n\n[Response was cut off due to an error]"

const partialSaveMessage = "Response saved but was cut off due to an error"

// GenerationService drives a (tournament, prompt) pair to a persisted,
// scored Result, streaming tokens to the client as they arrive.
type GenerationService struct {
	Store        *store.Store
	LLM          llm.Client
	Evaluator    *EvaluationService
	DefaultModel string
	// Per provider call. Expiry mid-stream takes the partial-save path.
	Timeout time.Duration
}

func NewGenerationService(st *store.Store, client llm.Client, evaluator *EvaluationService, defaultModel string, timeout time.Duration) *GenerationService {
	return &GenerationService{
		Store:        st,
		LLM:          client,
		Evaluator:    evaluator,
		DefaultModel: defaultModel,
		Timeout:      timeout,
	}
}

// emitFunc delivers one SSE payload to the client. A false return means
// the client is gone and no further events can be delivered.
type emitFunc func(payload fiber.Map) bool

const (
	genComplete = "complete"
	genPartial  = "partial_complete"
	genError    = "error"
)

type genOutcome struct {
	status     string // genComplete | genPartial | genError
	resultID   string
	response   string
	fallback   bool // completed via the non-streaming retry
	clientGone bool
	err        error
}

// runPipeline generates one result for (tournament, prompt): stream
// tokens while buffering the full text, persist on completion, chain
// evaluation, and degrade to partial-save or a non-streaming retry on
// failure. Terminal events are the caller's concern; only token events
// are emitted here so single and bulk mode can shape their own
// terminals.
func (s *GenerationService) runPipeline(parent context.Context, tournament *models.Tournament, prompt *models.Prompt, model string, emit emitFunc) genOutcome {
	fullPrompt := fmt.Sprintf("%s\n\nQuestion: %s", prompt.Content, tournament.Question)

	ctx, cancel := context.WithTimeout(parent, s.Timeout)
	defer cancel()

	fragments, errs := s.LLM.Stream(ctx, model, generationSystemPrompt, fullPrompt)

	var buf strings.Builder
	clientGone := false

	for fragment := range fragments {
		buf.WriteString(fragment)
		if !emit(fiber.Map{"prompt_id": prompt.ID, "token": fragment, "full_response": buf.String()}) {
			clientGone = true
			cancel()
			break
		}
	}
	if clientGone {
		// Let the provider goroutine observe the cancellation and exit.
		for range fragments {
		}
	}

	var streamErr error
	if err, ok := <-errs; ok && err != nil && !clientGone {
		streamErr = err
	}

	switch {
	case streamErr == nil && !clientGone:
		if strings.TrimSpace(buf.String()) == "" {
			return genOutcome{status: genError, err: errors.New("no content received from model")}
		}
		result := s.persistAndScore(tournament, prompt, buf.String())
		return genOutcome{status: genComplete, resultID: result.ID, response: result.Response}

	case buf.Len() > 0:
		// Partial work is never discarded, disconnects included.
		result := s.persistAndScore(tournament, prompt, buf.String()+truncationMarker)
		return genOutcome{status: genPartial, resultID: result.ID, response: result.Response, clientGone: clientGone, err: streamErr}

	case clientGone:
		return genOutcome{status: genError, clientGone: true, err: context.Canceled}

	default:
		// Streaming produced nothing; retry once without streaming.
		// Providers can reject streaming for configuration reasons
		// unrelated to the request itself.
		log.Printf("⚠️  Streaming failed for prompt %s, falling back to non-streaming: %v", prompt.ID, streamErr)
		fbCtx, fbCancel := context.WithTimeout(parent, s.Timeout)
		defer fbCancel()

		text, err := s.LLM.Complete(fbCtx, model, generationSystemPrompt, fullPrompt)
		if err != nil {
			return genOutcome{status: genError, err: fmt.Errorf("failed to generate response: %w", err)}
		}
		if strings.TrimSpace(text) == "" {
			return genOutcome{status: genError, err: errors.New("no content received from model")}
		}
		result := s.persistAndScore(tournament, prompt, text)
		return genOutcome{status: genComplete, resultID: result.ID, response: text, fallback: true}
	}
}

// persistAndScore stores a fresh result and chains the AI evaluation.
// The result is persisted before evaluation runs; a failed evaluation
// leaves it stored and unscored.
func (s *GenerationService) persistAndScore(tournament *models.Tournament, prompt *models.Prompt, response string) *models.Result {
	result := &models.Result{
		ID:           uuid.NewString(),
		TournamentID: tournament.ID,
		PromptID:     prompt.ID,
		Response:     response,
		CreatedAt:    time.Now().UTC(),
	}
	s.Store.PutResult(result)
	log.Printf("💾 Saved result %s with response length %d", result.ID, len(response))

	// The judge runs on its own deadline: a client disconnect must not
	// abort an evaluation already in flight.
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if _, err := s.Evaluator.ScoreStoredResult(ctx, tournament.ID, prompt.ID, result.ID); err != nil {
		log.Printf("⚠️  AI scoring failed for result %s: %v", result.ID, err)
	}
	return result
}

type generateRequest struct {
	TournamentID string `json:"tournament_id"`
	PromptID     string `json:"prompt_id"`
	Model        string `json:"model"`
}

// AutoGenerate streams one generated response for a prompt over SSE.
// Accepts GET (query params) and POST (JSON body overrides).
func (s *GenerationService) AutoGenerate(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	promptID := c.Query("prompt_id")
	model := c.Query("model", s.DefaultModel)

	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var req generateRequest
		if err := c.BodyParser(&req); err == nil {
			if req.PromptID != "" {
				promptID = req.PromptID
			}
			if req.Model != "" {
				model = req.Model
			}
		}
	}

	if promptID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "prompt_id is required"})
	}
	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	prompt, ok := s.Store.GetPrompt(promptID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}
	if s.LLM == nil {
		return c.Status(500).JSON(fiber.Map{"error": "OpenAI API key not configured"})
	}

	log.Printf("🚀 Starting auto-generation for prompt '%s' using model %s", prompt.Name, model)

	setSSEHeaders(c)
	reqCtx := c.Context()
	reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
		emit := func(payload fiber.Map) bool { return sseWrite(w, payload) }

		outcome := s.runPipeline(reqCtx, tournament, prompt, model, emit)
		switch outcome.status {
		case genComplete:
			if outcome.fallback {
				emit(fiber.Map{"prompt_id": prompt.ID, "full_response": outcome.response, "fallback": true})
			}
			emit(fiber.Map{"complete": true, "result_id": outcome.resultID})
		case genPartial:
			emit(fiber.Map{"partial_complete": true, "result_id": outcome.resultID, "message": partialSaveMessage})
		default:
			if !outcome.clientGone {
				emit(fiber.Map{"error": outcome.err.Error(), "prompt_id": prompt.ID})
			}
		}
	})
	return nil
}

type bulkGenerateRequest struct {
	TournamentID string `json:"tournament_id"`
	Model        string `json:"model"`
}

// AutoGenerateAll runs the generation pipeline for every prompt in the
// tournament that has no result yet, strictly in prompt order and one at
// a time, streaming per-prompt progress over SSE. One prompt's failure
// never aborts the batch.
func (s *GenerationService) AutoGenerateAll(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	model := c.Query("model", s.DefaultModel)

	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var req bulkGenerateRequest
		if err := c.BodyParser(&req); err == nil && req.Model != "" {
			model = req.Model
		}
	}

	tournament, ok := s.Store.GetTournament(tournamentID)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	if s.LLM == nil {
		return c.Status(500).JSON(fiber.Map{"error": "OpenAI API key not configured"})
	}
	prompts, _ := s.Store.PromptsForTournament(tournamentID)
	if len(prompts) == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "No prompts found for tournament"})
	}

	log.Printf("🚀 Starting bulk auto-generation for tournament '%s' using model %s", tournament.Name, model)

	setSSEHeaders(c)
	reqCtx := c.Context()
	reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
		emit := func(payload fiber.Map) bool { return sseWrite(w, payload) }

		var generated, skipped, partial, errored int
		for _, prompt := range prompts {
			if s.Store.HasResult(tournamentID, prompt.ID) {
				skipped++
				if !emit(fiber.Map{"prompt_id": prompt.ID, "status": "skipped", "message": "Response already exists"}) {
					return
				}
				continue
			}
			if !emit(fiber.Map{"prompt_id": prompt.ID, "status": "starting"}) {
				return
			}

			outcome := s.runPipeline(reqCtx, tournament, prompt, model, emit)
			switch outcome.status {
			case genComplete:
				generated++
				emit(fiber.Map{"prompt_id": prompt.ID, "status": "complete", "result_id": outcome.resultID})
			case genPartial:
				partial++
				emit(fiber.Map{"prompt_id": prompt.ID, "status": "partial_complete", "result_id": outcome.resultID, "message": partialSaveMessage})
			default:
				errored++
				if !outcome.clientGone {
					log.Printf("⚠️  Generation failed for prompt %s: %v", prompt.ID, outcome.err)
					emit(fiber.Map{"prompt_id": prompt.ID, "status": "error", "error": outcome.err.Error()})
				}
			}
			if outcome.clientGone {
				return
			}
		}

		emit(fiber.Map{"complete": true, "summary": fiber.Map{
			"total":     len(prompts),
			"generated": generated,
			"skipped":   skipped,
			"partial":   partial,
			"errors":    errored,
		}})
	})
	return nil
}

// TestStream emits a handful of timestamped events for verifying SSE
// plumbing end to end.
func (s *GenerationService) TestStream(c *fiber.Ctx) error {
	setSSEHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for i := 1; i <= 5; i++ {
			if !sseWrite(w, fiber.Map{
				"message":   fmt.Sprintf("Test message %d", i),
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}) {
				return
			}
			time.Sleep(time.Second)
		}
		sseWrite(w, fiber.Map{"complete": true})
	})
	return nil
}

func setSSEHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx
}

// sseWrite sends one data frame and flushes it. The flush is the real
// delivery; a flush error means the client disconnected.
func sseWrite(w *bufio.Writer, payload fiber.Map) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	return w.Flush() == nil
}
