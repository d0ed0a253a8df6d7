package refs

import (
	"errors"
	"fmt"
	"testing"
)

func mustCreate(t *testing.T, s *Store, name string, target Target) Record {
	t.Helper()
	rec, err := s.Create(name, target, true)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return rec
}

// buildChain creates refs/chain/0 -> refs/chain/1 -> ... -> refs/chain/hops,
// the last one pointing at an object. Resolving refs/chain/0 takes hops
// symbolic steps.
func buildChain(t *testing.T, s *Store, hops int) Record {
	t.Helper()
	mustCreate(t, s, fmt.Sprintf("refs/chain/%d", hops), Direct(testHash(99)))
	for i := hops - 1; i >= 0; i-- {
		mustCreate(t, s, fmt.Sprintf("refs/chain/%d", i), Symbolic(fmt.Sprintf("refs/chain/%d", i+1)))
	}
	rec, err := s.Lookup("refs/chain/0")
	if err != nil {
		t.Fatalf("Lookup chain start: %v", err)
	}
	return rec
}

func TestResolve_DirectAndSymbolic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		r := NewResolver(s, 0)
		main := mustCreate(t, s, "refs/heads/main", Direct(testHash(1)))
		head := mustCreate(t, s, "HEAD", Symbolic("refs/heads/main"))

		h, ok, err := r.Resolve(main)
		if err != nil || !ok || h != testHash(1) {
			t.Fatalf("Resolve(main) = %s, %v, %v", h, ok, err)
		}
		h, ok, err = r.Resolve(head)
		if err != nil || !ok || h != testHash(1) {
			t.Fatalf("Resolve(HEAD) = %s, %v, %v", h, ok, err)
		}

		res, err := r.Trace(head)
		if err != nil {
			t.Fatalf("Trace: %v", err)
		}
		if len(res.Chain) != 2 || res.Chain[0] != "HEAD" || res.Chain[1] != "refs/heads/main" {
			t.Fatalf("Chain = %v", res.Chain)
		}
	})
}

func TestResolve_CycleFails(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		r := NewResolver(s, 0)
		a := mustCreate(t, s, "refs/heads/a", Symbolic("refs/heads/b"))
		mustCreate(t, s, "refs/heads/b", Symbolic("refs/heads/a"))

		_, _, err := r.Resolve(a)
		if !errors.Is(err, ErrCyclicReference) {
			t.Fatalf("Resolve cycle: got %v, want ErrCyclicReference", err)
		}

		self := mustCreate(t, s, "refs/heads/self", Symbolic("refs/heads/self"))
		if _, _, err := r.Resolve(self); !errors.Is(err, ErrCyclicReference) {
			t.Fatalf("Resolve self loop: got %v, want ErrCyclicReference", err)
		}
	})
}

func TestResolve_DepthLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		r := NewResolver(s, DefaultMaxDepth)

		ok10 := buildChain(t, s, DefaultMaxDepth)
		h, ok, err := r.Resolve(ok10)
		if err != nil || !ok || h != testHash(99) {
			t.Fatalf("Resolve(%d hops) = %s, %v, %v", DefaultMaxDepth, h, ok, err)
		}

		deep := buildChain(t, s, DefaultMaxDepth+1)
		if _, _, err := r.Resolve(deep); !errors.Is(err, ErrChainTooDeep) {
			t.Fatalf("Resolve(%d hops): got %v, want ErrChainTooDeep", DefaultMaxDepth+1, err)
		}
	})
}

func TestResolve_CustomDepth(t *testing.T) {
	s := NewStore(NewMemoryBackend(), nil)
	start := buildChain(t, s, 3)
	if _, _, err := NewResolver(s, 2).Resolve(start); !errors.Is(err, ErrChainTooDeep) {
		t.Fatalf("depth 2: got %v, want ErrChainTooDeep", err)
	}
	if _, ok, err := NewResolver(s, 3).Resolve(start); err != nil || !ok {
		t.Fatalf("depth 3: ok=%v err=%v", ok, err)
	}
}

func TestResolve_DanglingIsAbsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		r := NewResolver(s, 0)
		head := mustCreate(t, s, "HEAD", Symbolic("refs/heads/unborn"))

		h, ok, err := r.Resolve(head)
		if err != nil {
			t.Fatalf("Resolve dangling: %v", err)
		}
		if ok || h != "" {
			t.Fatalf("Resolve dangling = %s, %v; want absent", h, ok)
		}

		res, err := r.Trace(head)
		if err != nil {
			t.Fatalf("Trace: %v", err)
		}
		if !res.Dangling || res.Missing != "refs/heads/unborn" {
			t.Fatalf("Trace = %+v", res)
		}

		if _, err := r.MustResolve(head); !errors.Is(err, ErrDanglingReference) {
			t.Fatalf("MustResolve: got %v, want ErrDanglingReference", err)
		}
		if _, _, err := r.ResolveName("refs/heads/nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ResolveName missing start: got %v, want ErrNotFound", err)
		}
	})
}

func TestResolver_Equal(t *testing.T) {
	s := NewStore(NewMemoryBackend(), nil)
	r := NewResolver(s, 0)
	mustCreate(t, s, "refs/heads/main", Direct(testHash(1)))
	mustCreate(t, s, "refs/heads/alias", Symbolic("refs/heads/main"))

	direct := Record{Name: "refs/heads/x", Target: Direct(testHash(1))}
	viaAlias := Record{Name: "refs/heads/x", Target: Symbolic("refs/heads/alias")}
	other := Record{Name: "refs/heads/x", Target: Direct(testHash(2))}
	renamed := Record{Name: "refs/heads/y", Target: Direct(testHash(1))}

	tests := []struct {
		name string
		a, b Record
		want bool
	}{
		{"same record", direct, direct, true},
		{"symbolic reaches same object", direct, viaAlias, true},
		{"different object", direct, other, false},
		{"different name", direct, renamed, false},
	}
	for _, tt := range tests {
		got, err := r.Equal(tt.a, tt.b)
		if err != nil {
			t.Fatalf("%s: Equal: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
		// Equality is symmetric.
		back, _ := r.Equal(tt.b, tt.a)
		if back != got {
			t.Errorf("%s: Equal not symmetric", tt.name)
		}
	}
}

func TestResolver_Dwim(t *testing.T) {
	s := NewStore(NewMemoryBackend(), nil)
	r := NewResolver(s, 0)
	mustCreate(t, s, "refs/heads/main", Direct(testHash(1)))
	mustCreate(t, s, "refs/tags/v1", Direct(testHash(2)))
	mustCreate(t, s, "refs/heads/v1", Direct(testHash(3)))
	mustCreate(t, s, "refs/remotes/origin/HEAD", Symbolic("refs/remotes/origin/main"))
	mustCreate(t, s, "refs/remotes/origin/main", Direct(testHash(4)))
	mustCreate(t, s, "HEAD", Symbolic("refs/heads/main"))

	tests := []struct {
		short string
		want  string
	}{
		{"main", "refs/heads/main"},
		{"v1", "refs/tags/v1"},
		{"origin/main", "refs/remotes/origin/main"},
		{"origin", "refs/remotes/origin/HEAD"},
		{"HEAD", "HEAD"},
		{"refs/heads/main", "refs/heads/main"},
	}
	for _, tt := range tests {
		rec, err := r.Dwim(tt.short)
		if err != nil {
			t.Fatalf("Dwim(%q): %v", tt.short, err)
		}
		if rec.Name != tt.want {
			t.Errorf("Dwim(%q) = %q, want %q", tt.short, rec.Name, tt.want)
		}
	}

	if _, err := r.Dwim("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Dwim(missing): got %v, want ErrNotFound", err)
	}
}
