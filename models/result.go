package models

import (
	"time"
)

// Result is one generated (and optionally scored) answer for a
// (tournament, prompt) pair. The pair is NOT unique: re-generating
// creates a new Result rather than overwriting. A nil Score means the
// result is unscored.
type Result struct {
	ID                  string             `json:"id"`
	TournamentID        string             `json:"tournament_id"`
	PromptID            string             `json:"prompt_id"`
	Response            string             `json:"response"`
	Score               *float64           `json:"score"`
	Feedback            string             `json:"feedback,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	AIEvaluated         bool               `json:"ai_evaluated,omitempty"`
	EvaluationTimestamp *time.Time         `json:"evaluation_timestamp,omitempty"`
	EvaluationMetrics   *EvaluationMetrics `json:"evaluation_metrics,omitempty"`
}

// EvaluationMetrics carries the structured part of a judge verdict.
// Only present when the judge answered in the structured form.
type EvaluationMetrics struct {
	Reasoning           string   `json:"reasoning,omitempty"`
	Strengths           []string `json:"strengths,omitempty"`
	AreasForImprovement []string `json:"areas_for_improvement,omitempty"`
	RelevanceScore      float64  `json:"relevance_score,omitempty"`
	ClarityScore        float64  `json:"clarity_score,omitempty"`
}

// LeaderboardEntry is a scored Result enriched with the referenced
// prompt's display fields.
type LeaderboardEntry struct {
	Result
	PromptName    string `json:"prompt_name,omitempty"`
	PromptContent string `json:"prompt_content,omitempty"`
}
