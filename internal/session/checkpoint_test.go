package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Root: dir}
	cp := Checkpoint{
		SessionID:         "abc123",
		UserQuery:         "what is rust",
		Mode:              ModeFlat,
		Status:            "started",
		CompletedDossiers: []Dossier{{Point: "p1", Body: "body1"}},
	}
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Load("abc123")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.UserQuery != cp.UserQuery || len(got.CompletedDossiers) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc123", "checkpoint.json")); err != nil {
		t.Fatalf("expected checkpoint.json to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc123", "checkpoint.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected .tmp file to be renamed away")
	}
}

func TestCheckpointLoadMissingIsNotError(t *testing.T) {
	store := &Store{Root: t.TempDir()}
	_, ok, err := store.Load("nope")
	if err != nil {
		t.Fatalf("missing checkpoint should not error, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing checkpoint")
	}
}

func TestListSortedByLastModifiedDescending(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Root: dir}
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		s2 := &Store{Root: dir, nowFunc: func() time.Time { return t0.Add(time.Duration(i) * time.Hour) }}
		if err := s2.Save(Checkpoint{SessionID: id, Status: "started"}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "newer" || list[1].SessionID != "older" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRemainingExcludesCompleted(t *testing.T) {
	plan := Plan{Points: []string{"a", "b", "c"}}
	completed := []Dossier{{Point: "a"}}
	rem := Remaining(plan, completed)
	if len(rem) != 2 || rem[0] != "b" || rem[1] != "c" {
		t.Fatalf("unexpected remaining: %v", rem)
	}
}
