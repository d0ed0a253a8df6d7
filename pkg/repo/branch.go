package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
)

const branchPrefix = "refs/heads/"

// CreateBranch creates refs/heads/<name> pointing at target. Returns an
// error wrapping refs.ErrAlreadyExists if the branch exists and force is
// false.
func (r *Repo) CreateBranch(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if !r.Objects.Has(target) {
		return fmt.Errorf("create branch %q: target %s: %w", name, target, object.ErrNotFound)
	}
	if _, err := r.Refs.Create(branchPrefix+name, refs.Direct(target), force); err != nil {
		if errors.Is(err, refs.ErrAlreadyExists) {
			return fmt.Errorf("create branch: branch %q already exists: %w", name, err)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/<name>. The current branch cannot be
// deleted.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}
	if err := r.Refs.Delete(branchPrefix + name); err != nil {
		if errors.Is(err, refs.ErrNotFound) {
			return fmt.Errorf("delete branch: branch %q does not exist: %w", name, err)
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	return nil
}

// ListBranches returns branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	recs, err := r.Refs.List(branchPrefix)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Shorthand())
	}
	return names, nil
}
