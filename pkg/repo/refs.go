package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
)

var (
	ErrUnknownRevision   = errors.New("unknown revision")
	ErrAmbiguousRevision = errors.New("ambiguous revision")
)

// minAbbrev is the shortest hex prefix accepted as an object name.
const minAbbrev = 4

// Head returns the HEAD record.
func (r *Repo) Head() (refs.Record, error) {
	rec, err := r.Refs.Lookup("HEAD")
	if err != nil {
		return refs.Record{}, fmt.Errorf("head: %w", err)
	}
	return rec, nil
}

// HeadHash resolves HEAD. ok is false on an unborn branch.
func (r *Repo) HeadHash() (h object.Hash, ok bool, err error) {
	head, err := r.Head()
	if err != nil {
		return "", false, err
	}
	return r.Resolver.Resolve(head)
}

// SetHead points HEAD at a branch (symbolic) or detaches it at a hash.
func (r *Repo) SetHead(target refs.Target) error {
	if _, err := r.Refs.Create("HEAD", target, true); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}

// CurrentBranch returns the branch HEAD names, or "" when HEAD is detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if name, ok := strings.CutPrefix(head.Target.Symbolic, branchPrefix); ok {
		return name, nil
	}
	return "", nil
}

// ResolveRevision turns a user-supplied revision into an object hash. It
// accepts a full or abbreviated object hash, a full reference name, or a
// short name expanded the way rev-parse does (main, v1, origin/main). A
// trailing "^{}" peels annotated tags.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = "HEAD"
	}
	base, peel := strings.CutSuffix(rev, "^{}")

	h, err := r.resolveBase(base)
	if err != nil {
		return "", err
	}
	if peel {
		return r.PeelTag(h)
	}
	return h, nil
}

func (r *Repo) resolveBase(rev string) (object.Hash, error) {
	rec, err := r.Resolver.Dwim(rev)
	switch {
	case err == nil:
		h, err := r.Resolver.MustResolve(rec)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", rev, err)
		}
		return h, nil
	case !errors.Is(err, refs.ErrNotFound):
		return "", fmt.Errorf("resolve %q: %w", rev, err)
	}

	if h, err := object.ParseHash(rev); err == nil {
		if !r.Objects.Has(h) {
			return "", fmt.Errorf("resolve %q: %w", rev, object.ErrNotFound)
		}
		return h, nil
	}
	if isHexPrefix(rev) {
		return r.expandAbbrev(rev)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRevision, rev)
}

func isHexPrefix(s string) bool {
	if len(s) < minAbbrev || len(s) > 2*object.HashSize {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (r *Repo) expandAbbrev(prefix string) (object.Hash, error) {
	all, err := r.Objects.List()
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}
	var match object.Hash
	for _, h := range all {
		if !strings.HasPrefix(string(h), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %q matches %s and %s", ErrAmbiguousRevision, prefix, match.Short(), h.Short())
		}
		match = h
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownRevision, prefix)
	}
	return match, nil
}

// PeelTag follows annotated tag objects until it reaches a non-tag object.
func (r *Repo) PeelTag(h object.Hash) (object.Hash, error) {
	for range r.Resolver.MaxDepth() + 1 {
		objType, _, err := r.Objects.Read(h)
		if err != nil {
			return "", fmt.Errorf("peel %s: %w", h, err)
		}
		if objType != object.TypeTag {
			return h, nil
		}
		tag, err := r.Objects.ReadTag(h)
		if err != nil {
			return "", fmt.Errorf("peel %s: %w", h, err)
		}
		h = tag.TargetHash
	}
	return "", fmt.Errorf("peel: %w", refs.ErrChainTooDeep)
}

// ListRefs returns every reference under prefix, ordered by name.
func (r *Repo) ListRefs(prefix string) ([]refs.Record, error) {
	return r.Refs.List(prefix)
}
