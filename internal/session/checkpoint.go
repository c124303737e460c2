package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Checkpoint is the durable per-session snapshot (spec §3, §4.7).
type Checkpoint struct {
	SessionID           string    `json:"session_id"`
	UserQuery           string    `json:"user_query"`
	Mode                Mode      `json:"mode"`
	Language            Language  `json:"language"`
	ResearchPlan        Plan      `json:"research_plan"`
	CompletedDossiers   []Dossier `json:"completed_dossiers"`
	AccumulatedLearning string    `json:"accumulated_learnings"`
	RemainingPoints     []string  `json:"remaining_points"`
	SourceRegistry      map[int]string `json:"source_registry,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	LastModified        time.Time `json:"last_modified"`
}

// Store persists checkpoints under <Root>/<session_id>/checkpoint.json.
type Store struct {
	Root    string
	Backup  bool
	nowFunc func() time.Time
}

func (s *Store) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now().UTC()
}

func (s *Store) dir(sessionID string) string {
	return filepath.Join(s.Root, sessionID)
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir(sessionID), "checkpoint.json")
}

// Save atomically overwrites the checkpoint: write to a temp file in the
// session directory, then rename, so a reader never observes a partial file
// (spec §4.7, §8 invariant 4), matching the teacher's httpcache Save pattern.
func (s *Store) Save(cp Checkpoint) error {
	if err := os.MkdirAll(s.dir(cp.SessionID), 0o755); err != nil {
		return fmt.Errorf("checkpoint dir: %w", err)
	}
	cp.LastModified = s.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.LastModified
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	target := s.path(cp.SessionID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint temp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	if s.Backup {
		_ = os.WriteFile(target+".bak", data, 0o644)
	}
	return nil
}

// Load returns the checkpoint for sessionID. A missing file is reported via
// ok=false, not an error, per spec §4.7 ("tolerate missing files as absent").
func (s *Store) Load(sessionID string) (Checkpoint, bool, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

// Summary is the lightweight per-session metadata returned by List.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Status       string    `json:"status"`
	LastModified time.Time `json:"last_modified"`
}

// List scans Root and returns a summary per session, sorted by LastModified
// descending (spec §4.7).
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint root: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cp, ok, err := s.Load(e.Name())
		if err != nil || !ok {
			continue
		}
		out = append(out, Summary{SessionID: cp.SessionID, Status: cp.Status, LastModified: cp.LastModified})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Remaining computes the points still to research given a plan and the
// dossiers already completed, used on resume (spec §4.7): "remaining_points
// = plan - completed".
func Remaining(plan Plan, completed []Dossier) []string {
	done := make(map[string]bool, len(completed))
	for _, d := range completed {
		done[d.Point] = true
	}
	var out []string
	for _, p := range plan.AllPoints() {
		if !done[p] {
			out = append(out, p)
		}
	}
	return out
}
