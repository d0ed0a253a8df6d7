package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
)

const tagPrefix = "refs/tags/"

// CreateTag creates or updates a lightweight tag ref under refs/tags/.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if !r.Objects.Has(target) {
		return fmt.Errorf("create tag %q: target %s: %w", name, target, object.ErrNotFound)
	}
	if _, err := r.Refs.Create(tagPrefix+name, refs.Direct(target), force); err != nil {
		if errors.Is(err, refs.ErrAlreadyExists) {
			return fmt.Errorf("create tag: tag %q already exists: %w", name, err)
		}
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// CreateAnnotatedTag stores a tag object pointing at target and a ref under
// refs/tags/ pointing at the tag object.
func (r *Repo) CreateAnnotatedTag(name string, target object.Hash, tagger object.Signature, message string, force bool) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("create annotated tag: message is required")
	}
	if _, err := refs.ValidateName(tagPrefix + name); err != nil {
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	if err := tagger.Validate(); err != nil {
		return "", fmt.Errorf("create annotated tag: tagger: %w", err)
	}

	targetType, _, err := r.Objects.Read(target)
	if err != nil {
		return "", fmt.Errorf("create annotated tag: read target %s: %w", target, err)
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	tagHash, err := r.Objects.WriteTag(&object.TagObj{
		TargetHash: target,
		TargetType: targetType,
		Name:       name,
		Tagger:     tagger,
		Message:    message,
	})
	if err != nil {
		return "", fmt.Errorf("create annotated tag: write tag object: %w", err)
	}
	if _, err := r.Refs.Create(tagPrefix+name, refs.Direct(tagHash), force); err != nil {
		if errors.Is(err, refs.ErrAlreadyExists) {
			return "", fmt.Errorf("create annotated tag: tag %q already exists: %w", name, err)
		}
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	return tagHash, nil
}

// DeleteTag removes a tag ref from refs/tags/.
func (r *Repo) DeleteTag(name string) error {
	name = strings.TrimSpace(name)
	if err := r.Refs.Delete(tagPrefix + name); err != nil {
		if errors.Is(err, refs.ErrNotFound) {
			return fmt.Errorf("delete tag: tag %q does not exist: %w", name, err)
		}
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// ResolveTag resolves a tag name under refs/tags/ to the hash it stores,
// which is a tag object for annotated tags.
func (r *Repo) ResolveTag(name string) (object.Hash, error) {
	h, ok, err := r.Resolver.ResolveName(tagPrefix + strings.TrimSpace(name))
	if err != nil {
		return "", fmt.Errorf("resolve tag: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("resolve tag %q: %w", name, refs.ErrDanglingReference)
	}
	return h, nil
}

// ListTags lists tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	recs, err := r.Refs.List(tagPrefix)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Shorthand())
	}
	return names, nil
}
