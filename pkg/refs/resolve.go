package refs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/sirupsen/logrus"
)

// DefaultMaxDepth bounds symbolic hops independent of cycle detection.
const DefaultMaxDepth = 10

// Resolution describes how a reference was followed.
type Resolution struct {
	// Hash is the object reached; empty when Dangling.
	Hash object.Hash
	// Chain lists every reference name visited, starting with the input.
	Chain []string
	// Dangling is set when a symbolic hop named a missing reference.
	Dangling bool
	// Missing is the first name that could not be found.
	Missing string
}

// Resolver follows symbolic references to object hashes. Each hop is a
// separate lookup, so a chain rebound concurrently is observed hop by hop;
// the visited set and the depth limit keep resolution bounded regardless.
type Resolver struct {
	store    *Store
	maxDepth int
}

// NewResolver returns a resolver allowing at most maxDepth symbolic hops.
// maxDepth <= 0 selects DefaultMaxDepth.
func NewResolver(store *Store, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{store: store, maxDepth: maxDepth}
}

// MaxDepth returns the configured hop limit.
func (r *Resolver) MaxDepth() int { return r.maxDepth }

// Trace follows rec to a direct target. Cycles and over-long chains are
// errors; a missing intermediate reference is reported via Dangling.
func (r *Resolver) Trace(rec Record) (Resolution, error) {
	res := Resolution{Chain: []string{rec.Name}}
	visited := map[string]struct{}{rec.Name: {}}
	cur := rec

	for hops := 0; ; hops++ {
		if !cur.Target.IsSymbolic() {
			res.Hash = cur.Target.Hash
			return res, nil
		}
		if hops >= r.maxDepth {
			return res, fmt.Errorf(
				"resolve %q: %w (more than %d hops: %s)",
				rec.Name, ErrChainTooDeep, r.maxDepth, strings.Join(res.Chain, " -> "),
			)
		}

		next := cur.Target.Symbolic
		if _, seen := visited[next]; seen {
			res.Chain = append(res.Chain, next)
			return res, fmt.Errorf("resolve %q: %w: %s", rec.Name, ErrCyclicReference, strings.Join(res.Chain, " -> "))
		}
		visited[next] = struct{}{}
		res.Chain = append(res.Chain, next)

		nextRec, err := r.store.Lookup(next)
		if errors.Is(err, ErrNotFound) {
			res.Dangling = true
			res.Missing = next
			r.store.log.WithFields(logrus.Fields{"ref": rec.Name, "missing": next}).Debug("dangling symbolic reference")
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("resolve %q: %w", rec.Name, err)
		}
		cur = nextRec
	}
}

// Resolve returns the object hash rec ultimately points at. ok is false when
// the chain dangles; that is an absent result, not an error.
func (r *Resolver) Resolve(rec Record) (h object.Hash, ok bool, err error) {
	res, err := r.Trace(rec)
	if err != nil {
		return "", false, err
	}
	if res.Dangling {
		return "", false, nil
	}
	return res.Hash, true, nil
}

// ResolveName looks up name and resolves it. A missing starting reference is
// ErrNotFound; only missing intermediates count as dangling.
func (r *Resolver) ResolveName(name string) (object.Hash, bool, error) {
	rec, err := r.store.Lookup(name)
	if err != nil {
		return "", false, err
	}
	return r.Resolve(rec)
}

// MustResolve is Resolve with dangling chains turned into
// ErrDanglingReference, for callers that need a hash or a reason.
func (r *Resolver) MustResolve(rec Record) (object.Hash, error) {
	res, err := r.Trace(rec)
	if err != nil {
		return "", err
	}
	if res.Dangling {
		return "", fmt.Errorf("resolve %q: %w: %q does not exist", rec.Name, ErrDanglingReference, res.Missing)
	}
	return res.Hash, nil
}

// Equal reports whether a and b have the same name and resolve to the same
// object. Two records dangling at the same point are equal.
func (r *Resolver) Equal(a, b Record) (bool, error) {
	if a.Name != b.Name {
		return false, nil
	}
	ra, err := r.Trace(a)
	if err != nil {
		return false, err
	}
	rb, err := r.Trace(b)
	if err != nil {
		return false, err
	}
	if ra.Dangling || rb.Dangling {
		return ra.Dangling == rb.Dangling && ra.Missing == rb.Missing, nil
	}
	return ra.Hash == rb.Hash, nil
}

// dwimRules are tried in order to expand a short name, as git rev-parse does.
var dwimRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// Dwim expands a short name such as "main" or "origin/main" into the first
// existing reference it can denote.
func (r *Resolver) Dwim(short string) (Record, error) {
	short = strings.TrimSpace(short)
	if short == "" {
		return Record{}, fmt.Errorf("dwim: empty name: %w", ErrNotFound)
	}
	for _, rule := range dwimRules {
		candidate := fmt.Sprintf(rule, short)
		if _, err := ValidateName(candidate); err != nil {
			continue
		}
		rec, err := r.store.Lookup(candidate)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
	}
	return Record{}, fmt.Errorf("dwim %q: %w", short, ErrNotFound)
}
