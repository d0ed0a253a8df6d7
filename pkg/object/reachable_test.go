package object

import (
	"testing"
)

func writeTestGraph(t *testing.T, s *Store) (commit, blob, note, orphan Hash) {
	t.Helper()
	var err error
	blob, err = s.WriteBlob(&Blob{Data: []byte("package main\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	tree, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "main.go", Mode: TreeModeFile, Hash: blob}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	commit, err = s.WriteCommit(&CommitObj{TreeHash: tree, Author: testAuthor, Committer: testAuthor, Message: "init"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	note, err = s.WriteNote(&NoteObj{TargetHash: commit, Author: testAuthor, Committer: testAuthor, Message: "lgtm"})
	if err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	orphan, err = s.WriteBlob(&Blob{Data: []byte("nobody points here")})
	if err != nil {
		t.Fatalf("WriteBlob(orphan): %v", err)
	}
	return commit, blob, note, orphan
}

func TestReachableSetFollowsNotes(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{})
	commit, blob, note, orphan := writeTestGraph(t, s)

	set, err := s.ReachableSet([]Hash{note})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	for _, h := range []Hash{note, commit, blob} {
		if _, ok := set[h]; !ok {
			t.Errorf("expected %s to be reachable from note", h.Short())
		}
	}
	if _, ok := set[orphan]; ok {
		t.Error("orphan blob should not be reachable")
	}
}

func TestPruneRemovesOnlyUnreachable(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{})
	commit, _, _, orphan := writeTestGraph(t, s)

	dry, err := s.Prune([]Hash{commit}, true)
	if err != nil {
		t.Fatalf("Prune(dry): %v", err)
	}
	if !s.Has(orphan) {
		t.Fatal("dry run deleted an object")
	}
	// note and orphan are both unreachable from the commit.
	if len(dry.Pruned) != 2 {
		t.Fatalf("dry run pruned %d objects, want 2", len(dry.Pruned))
	}

	summary, err := s.Prune([]Hash{commit}, false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if summary.Reachable != 3 {
		t.Fatalf("Reachable = %d, want 3", summary.Reachable)
	}
	if s.Has(orphan) {
		t.Fatal("orphan survived prune")
	}
	if !s.Has(commit) {
		t.Fatal("prune deleted a reachable commit")
	}
}
