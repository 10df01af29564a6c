package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"llm-tournament-system/models"
)

// Collection file names under the data directory. The backup and export
// tooling (utils, cmd/datautil) reads the same files.
const (
	TournamentsFile = "tournaments.json"
	PromptsFile     = "prompts.json"
	ResultsFile     = "results.json"
)

// Store keeps all tournament state in memory, mirrored to three JSON
// documents on disk. Every mutating call rewrites the affected document
// wholesale; a failed write is logged and the in-memory mutation is kept
// (the durable copy may lag after an I/O fault).
//
// A single RWMutex guards the maps. Concurrent writers race with
// last-write-wins semantics, which is accepted for single-user or
// low-contention usage.
type Store struct {
	mu  sync.RWMutex
	dir string

	tournaments map[string]*models.Tournament
	prompts     map[string]*models.Prompt
	results     map[string]*models.Result

	// Map iteration order is random, so listing order is tracked
	// explicitly. The leaderboard tie-break depends on result order.
	tournamentOrder []string
	resultOrder     []string
}

// New loads (or initializes) a store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &Store{
		dir:         dir,
		tournaments: map[string]*models.Tournament{},
		prompts:     map[string]*models.Prompt{},
		results:     map[string]*models.Result{},
	}

	if err := loadCollection(filepath.Join(dir, TournamentsFile), &s.tournaments); err != nil {
		return nil, err
	}
	if err := loadCollection(filepath.Join(dir, PromptsFile), &s.prompts); err != nil {
		return nil, err
	}
	if err := loadCollection(filepath.Join(dir, ResultsFile), &s.results); err != nil {
		return nil, err
	}

	s.tournamentOrder = orderByCreation(s.tournaments, func(t *models.Tournament) (string, int64) {
		return t.ID, t.CreatedAt.UnixNano()
	})
	s.resultOrder = orderByCreation(s.results, func(r *models.Result) (string, int64) {
		return r.ID, r.CreatedAt.UnixNano()
	})

	return s, nil
}

func loadCollection[T any](path string, dst *map[string]*T) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("📁 Creating new data file: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	log.Printf("📁 Loaded %d items from %s", len(*dst), path)
	return nil
}

// orderByCreation rebuilds an insertion-order slice from a loaded map.
// On disk the insertion order is lost, so creation time (then ID, for
// determinism) is the best available reconstruction.
func orderByCreation[T any](m map[string]*T, key func(*T) (string, int64)) []string {
	type entry struct {
		id string
		at int64
	}
	entries := make([]entry, 0, len(m))
	for _, v := range m {
		id, at := key(v)
		entries = append(entries, entry{id: id, at: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at != entries[j].at {
			return entries[i].at < entries[j].at
		}
		return entries[i].id < entries[j].id
	})
	order := make([]string, len(entries))
	for i, e := range entries {
		order[i] = e.id
	}
	return order
}

// saveLocked rewrites one collection document. Callers hold the lock.
// Write failures are logged, not returned: the in-memory state stays
// authoritative and the next successful write catches the file up.
func saveLocked[T any](dir, name string, m map[string]*T) {
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Printf("❌ Error encoding %s: %v", path, err)
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("❌ Error saving %s: %v", path, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Printf("❌ Error saving %s: %v", path, err)
		return
	}
	log.Printf("💾 Saved %d items to %s", len(m), path)
}

// Flush rewrites all three documents. Called at shutdown.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	saveLocked(s.dir, TournamentsFile, s.tournaments)
	saveLocked(s.dir, PromptsFile, s.prompts)
	saveLocked(s.dir, ResultsFile, s.results)
}

// Counts reports collection sizes, for the startup banner.
func (s *Store) Counts() (tournaments, prompts, results int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tournaments), len(s.prompts), len(s.results)
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	cp := *t
	cp.PromptIDs = append([]string(nil), t.PromptIDs...)
	return &cp
}

func cloneResult(r *models.Result) *models.Result {
	cp := *r
	if r.Score != nil {
		score := *r.Score
		cp.Score = &score
	}
	if r.EvaluationTimestamp != nil {
		ts := *r.EvaluationTimestamp
		cp.EvaluationTimestamp = &ts
	}
	if r.EvaluationMetrics != nil {
		m := *r.EvaluationMetrics
		m.Strengths = append([]string(nil), r.EvaluationMetrics.Strengths...)
		m.AreasForImprovement = append([]string(nil), r.EvaluationMetrics.AreasForImprovement...)
		cp.EvaluationMetrics = &m
	}
	return &cp
}

// --- Tournaments ---

func (s *Store) GetTournament(id string) (*models.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, false
	}
	return cloneTournament(t), true
}

func (s *Store) ListTournaments() []*models.Tournament {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tournament, 0, len(s.tournaments))
	for _, id := range s.tournamentOrder {
		if t, ok := s.tournaments[id]; ok {
			out = append(out, cloneTournament(t))
		}
	}
	return out
}

// PutTournament inserts or replaces a tournament and persists the
// tournaments document.
func (s *Store) PutTournament(t *models.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tournaments[t.ID]; !exists {
		s.tournamentOrder = append(s.tournamentOrder, t.ID)
	}
	s.tournaments[t.ID] = cloneTournament(t)
	saveLocked(s.dir, TournamentsFile, s.tournaments)
}

// CreateTournament stores a tournament together with its inline prompts
// in one step, persisting both documents once.
func (s *Store) CreateTournament(t *models.Tournament, prompts []*models.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prompts {
		cp := *p
		s.prompts[p.ID] = &cp
	}
	if _, exists := s.tournaments[t.ID]; !exists {
		s.tournamentOrder = append(s.tournamentOrder, t.ID)
	}
	s.tournaments[t.ID] = cloneTournament(t)
	saveLocked(s.dir, PromptsFile, s.prompts)
	saveLocked(s.dir, TournamentsFile, s.tournaments)
}

// DeleteTournament removes a tournament, every prompt it owns, and every
// result referencing it. Returns cascade counts.
func (s *Store) DeleteTournament(id string) (promptsDeleted, resultsDeleted int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tournaments[id]
	if !exists {
		return 0, 0, false
	}

	for _, pid := range t.PromptIDs {
		if _, ok := s.prompts[pid]; ok {
			delete(s.prompts, pid)
			promptsDeleted++
		}
	}
	resultsDeleted = s.deleteResultsLocked(func(r *models.Result) bool {
		return r.TournamentID == id
	})

	delete(s.tournaments, id)
	s.tournamentOrder = removeID(s.tournamentOrder, id)

	saveLocked(s.dir, TournamentsFile, s.tournaments)
	saveLocked(s.dir, PromptsFile, s.prompts)
	saveLocked(s.dir, ResultsFile, s.results)
	return promptsDeleted, resultsDeleted, true
}

// --- Prompts ---

func (s *Store) GetPrompt(id string) (*models.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// PromptsForTournament returns the tournament's prompts in its
// prompt-ID order, skipping dangling references.
func (s *Store) PromptsForTournament(tournamentID string) ([]*models.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, false
	}
	out := make([]*models.Prompt, 0, len(t.PromptIDs))
	for _, pid := range t.PromptIDs {
		if p, ok := s.prompts[pid]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, true
}

// AttachPrompt stores a prompt and appends it to the tournament's
// prompt-ID list in one step.
func (s *Store) AttachPrompt(tournamentID string, p *models.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament %s not found", tournamentID)
	}
	cp := *p
	s.prompts[p.ID] = &cp
	t.PromptIDs = append(t.PromptIDs, p.ID)
	saveLocked(s.dir, PromptsFile, s.prompts)
	saveLocked(s.dir, TournamentsFile, s.tournaments)
	return nil
}

// DeletePrompt removes a prompt, detaches it from its owning
// tournament's prompt-ID list, and deletes every result referencing it.
func (s *Store) DeletePrompt(id string) (resultsDeleted int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prompts[id]; !exists {
		return 0, false
	}
	delete(s.prompts, id)

	for _, t := range s.tournaments {
		t.PromptIDs = removeID(t.PromptIDs, id)
	}
	resultsDeleted = s.deleteResultsLocked(func(r *models.Result) bool {
		return r.PromptID == id
	})

	saveLocked(s.dir, PromptsFile, s.prompts)
	saveLocked(s.dir, TournamentsFile, s.tournaments)
	saveLocked(s.dir, ResultsFile, s.results)
	return resultsDeleted, true
}

// --- Results ---

func (s *Store) GetResult(id string) (*models.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false
	}
	return cloneResult(r), true
}

// PutResult inserts or replaces a result and persists the results
// document.
func (s *Store) PutResult(r *models.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[r.ID]; !exists {
		s.resultOrder = append(s.resultOrder, r.ID)
	}
	s.results[r.ID] = cloneResult(r)
	saveLocked(s.dir, ResultsFile, s.results)
}

// ResultsForTournament returns the tournament's results in insertion
// order.
func (s *Store) ResultsForTournament(tournamentID string) []*models.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Result
	for _, id := range s.resultOrder {
		if r, ok := s.results[id]; ok && r.TournamentID == tournamentID {
			out = append(out, cloneResult(r))
		}
	}
	return out
}

// UnscoredResults returns the tournament's results with a nil score, in
// insertion order.
func (s *Store) UnscoredResults(tournamentID string) []*models.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Result
	for _, id := range s.resultOrder {
		if r, ok := s.results[id]; ok && r.TournamentID == tournamentID && r.Score == nil {
			out = append(out, cloneResult(r))
		}
	}
	return out
}

// HasResult reports whether any result exists for the pair, regardless
// of score state. Bulk generation's skip check.
func (s *Store) HasResult(tournamentID, promptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.TournamentID == tournamentID && r.PromptID == promptID {
			return true
		}
	}
	return false
}

// FirstResultForPair returns the oldest result for the pair. Used by
// manual scoring when the client did not address a result by ID.
func (s *Store) FirstResultForPair(tournamentID, promptID string) (*models.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.resultOrder {
		if r, ok := s.results[id]; ok && r.TournamentID == tournamentID && r.PromptID == promptID {
			return cloneResult(r), true
		}
	}
	return nil, false
}

func (s *Store) deleteResultsLocked(match func(*models.Result) bool) int {
	deleted := 0
	for id, r := range s.results {
		if match(r) {
			delete(s.results, id)
			s.resultOrder = removeID(s.resultOrder, id)
			deleted++
		}
	}
	return deleted
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
