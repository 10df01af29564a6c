package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-tournament-system/models"
	"llm-tournament-system/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictFreeText(t *testing.T) {
	tests := []struct {
		name     string
		critique string
		want     float64
	}{
		{"slash notation", "Strong answer, I'd say 8.5/10. Good structure.", 8.5},
		{"score prefix", "Score: 3\nToo shallow to be useful.", 3.0},
		{"uppercase and spacing", "Overall SCORE: 6.5 with caveats", 6.5},
		{"no parsable score", "An interesting response with some merit.", 7.0},
		{"clamped above ten", "Incredible, 15/10 would read again.", 10.0},
		{"clamped below one", "Worthless. 0/10.", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, metrics := parseVerdict(tt.critique)
			assert.InDelta(t, tt.want, score, 0.001)
			assert.Nil(t, metrics)
		})
	}
}

func TestParseVerdictStructured(t *testing.T) {
	critique := `Here is my evaluation:
{"score": 8, "feedback": "Clear and correct.", "reasoning": "Covers the mechanism well.",
 "strengths": ["accurate", "concise"], "areas_for_improvement": ["add examples"],
 "relevance_score": 9, "clarity_score": 8}`

	score, metrics := parseVerdict(critique)
	assert.InDelta(t, 8.0, score, 0.001)
	require.NotNil(t, metrics)
	assert.Equal(t, "Covers the mechanism well.", metrics.Reasoning)
	assert.Equal(t, []string{"accurate", "concise"}, metrics.Strengths)
	assert.Equal(t, []string{"add examples"}, metrics.AreasForImprovement)
	assert.InDelta(t, 9.0, metrics.RelevanceScore, 0.001)
	assert.InDelta(t, 8.0, metrics.ClarityScore, 0.001)
}

func TestParseVerdictMalformedJSONFallsBackToRegex(t *testing.T) {
	score, metrics := parseVerdict(`{"score": broken json} but really 5/10`)
	assert.InDelta(t, 5.0, score, 0.001)
	assert.Nil(t, metrics)
}

func newEvalFixture(t *testing.T, client *mockLLM) (*EvaluationService, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	prompt := &models.Prompt{ID: "p1", Name: "explainer", Content: "Explain simply."}
	tournament := &models.Tournament{
		ID:        "cup",
		Name:      "Cup",
		Question:  "Why is the sky blue?",
		PromptIDs: []string{"p1"},
		CreatedAt: time.Now().UTC(),
		Status:    models.TournamentStatusActive,
	}
	st.CreateTournament(tournament, []*models.Prompt{prompt})
	st.PutResult(&models.Result{
		ID:           "r1",
		TournamentID: "cup",
		PromptID:     "p1",
		Response:     "Because of Rayleigh scattering.",
		CreatedAt:    time.Now().UTC(),
	})

	return NewEvaluationService(st, client, "judge-model", 5*time.Second, time.Millisecond), st
}

func TestScoreStoredResultWritesVerdict(t *testing.T) {
	critique := "Accurate and to the point. 8/10"
	svc, st := newEvalFixture(t, &mockLLM{completions: []string{critique}})

	updated, err := svc.ScoreStoredResult(context.Background(), "cup", "p1", "r1")
	require.NoError(t, err)
	require.NotNil(t, updated.Score)
	assert.InDelta(t, 8.0, *updated.Score, 0.001)

	stored, ok := st.GetResult("r1")
	require.True(t, ok)
	require.NotNil(t, stored.Score)
	assert.InDelta(t, 8.0, *stored.Score, 0.001)
	// Critique text is stored verbatim as feedback.
	assert.Equal(t, critique, stored.Feedback)
	assert.True(t, stored.AIEvaluated)
	require.NotNil(t, stored.EvaluationTimestamp)
	assert.Nil(t, stored.EvaluationMetrics)
}

func TestScoreStoredResultStructuredVerdict(t *testing.T) {
	critique := `{"score": 9, "feedback": "Excellent.", "reasoning": "Thorough.", "strengths": ["depth"], "areas_for_improvement": ["brevity"], "relevance_score": 9, "clarity_score": 10}`
	svc, st := newEvalFixture(t, &mockLLM{completions: []string{critique}})

	_, err := svc.ScoreStoredResult(context.Background(), "cup", "p1", "r1")
	require.NoError(t, err)

	stored, _ := st.GetResult("r1")
	require.NotNil(t, stored.EvaluationMetrics)
	assert.Equal(t, "Thorough.", stored.EvaluationMetrics.Reasoning)
	assert.InDelta(t, 10.0, stored.EvaluationMetrics.ClarityScore, 0.001)
}

func TestScoreStoredResultJudgeFailureLeavesResultUnscored(t *testing.T) {
	svc, st := newEvalFixture(t, &mockLLM{completeErr: errors.New("rate limited")})

	_, err := svc.ScoreStoredResult(context.Background(), "cup", "p1", "r1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "judge call failed")

	stored, _ := st.GetResult("r1")
	assert.Nil(t, stored.Score)
	assert.False(t, stored.AIEvaluated)
	assert.Empty(t, stored.Feedback)
}

func TestScoreStoredResultLookupErrors(t *testing.T) {
	svc, _ := newEvalFixture(t, &mockLLM{completions: []string{"8/10"}})

	_, err := svc.ScoreStoredResult(context.Background(), "missing", "p1", "r1")
	assert.ErrorContains(t, err, "tournament missing not found")

	_, err = svc.ScoreStoredResult(context.Background(), "cup", "p1", "missing")
	assert.ErrorContains(t, err, "result missing not found")

	// A result id paired with the wrong prompt must not match.
	_, err = svc.ScoreStoredResult(context.Background(), "cup", "other-prompt", "r1")
	assert.ErrorContains(t, err, "not found")
}

func TestScoreStoredResultWithoutClient(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	prompt := &models.Prompt{ID: "p1", Content: "x"}
	tournament := &models.Tournament{ID: "cup", Question: "q", PromptIDs: []string{"p1"}, CreatedAt: time.Now().UTC()}
	st.CreateTournament(tournament, []*models.Prompt{prompt})
	st.PutResult(&models.Result{ID: "r1", TournamentID: "cup", PromptID: "p1", CreatedAt: time.Now().UTC()})

	svc := NewEvaluationService(st, nil, "judge-model", time.Second, time.Millisecond)
	_, err = svc.ScoreStoredResult(context.Background(), "cup", "p1", "r1")
	assert.Error(t, err)
}
