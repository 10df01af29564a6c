package services

import (
	"sort"

	"llm-tournament-system/models"
	"llm-tournament-system/store"

	"github.com/gofiber/fiber/v2"
)

// BuildLeaderboard projects a tournament's scored results into a ranked
// view: descending by score, insertion order preserved among ties, each
// entry enriched with the referenced prompt's display fields. Read-only.
func BuildLeaderboard(st *store.Store, tournamentID string) []models.LeaderboardEntry {
	entries := []models.LeaderboardEntry{}
	for _, r := range st.ResultsForTournament(tournamentID) {
		if r.Score == nil {
			continue
		}
		entry := models.LeaderboardEntry{Result: *r}
		if p, ok := st.GetPrompt(r.PromptID); ok {
			entry.PromptName = p.Name
			entry.PromptContent = p.Content
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return *entries[i].Score > *entries[j].Score
	})
	return entries
}

func (s *TournamentService) GetLeaderboard(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	if _, ok := s.Store.GetTournament(tournamentID); !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	return c.JSON(BuildLeaderboard(s.Store, tournamentID))
}
