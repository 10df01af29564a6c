package models

import (
	"time"
)

// Tournament statuses. Informational only; no transition rules are enforced.
const (
	TournamentStatusActive    = "active"
	TournamentStatusCompleted = "completed"
	TournamentStatusArchived  = "archived"
)

// Tournament is a named evaluation task (a question) bound to a set of
// candidate prompts. The tournament owns its prompt-ID list; prompt
// bodies live in their own collection.
type Tournament struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Question    string    `json:"question"`
	PromptIDs   []string  `json:"prompt_ids"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
}
