package refs

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refname"
	"github.com/sirupsen/logrus"
)

// Store validates and persists references on top of a Backend.
type Store struct {
	backend Backend
	log     *logrus.Logger

	// mu serializes writers in this process. Backends provide the
	// cross-process guarantee.
	mu sync.Mutex
}

// NewStore wraps a backend. A nil logger gets a default logrus logger.
func NewStore(backend Backend, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{backend: backend, log: logger}
}

// Backend returns the persistence provider behind the store.
func (s *Store) Backend() Backend { return s.backend }

// ValidateName checks a full reference name. One-level names are pseudo-refs
// and must be uppercase (HEAD, FETCH_HEAD); everything else uses the strict
// multi-level grammar.
func ValidateName(name string) (string, error) {
	if strings.Contains(name, "/") {
		return refname.Normalize(name, refname.FormatNormal)
	}
	return refname.Normalize(name, refname.FormatAllowOneLevel)
}

func validateTarget(target Target) error {
	if target.IsSymbolic() {
		if target.Hash != "" {
			return fmt.Errorf("target has both a hash and a symbolic name")
		}
		if _, err := ValidateName(target.Symbolic); err != nil {
			return fmt.Errorf("symbolic target: %w", err)
		}
		return nil
	}
	if _, err := object.ParseHash(string(target.Hash)); err != nil {
		return err
	}
	return nil
}

// Lookup returns the record stored under name.
func (s *Store) Lookup(name string) (Record, error) {
	if _, err := ValidateName(name); err != nil {
		return Record{}, fmt.Errorf("lookup ref: %w", err)
	}
	return s.backend.Read(name)
}

// Create stores a reference. Without force an existing record fails with
// ErrAlreadyExists; the existence check and the write are atomic.
func (s *Store) Create(name string, target Target, force bool) (Record, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Record{}, fmt.Errorf("create ref: %w", err)
	}
	if err := validateTarget(target); err != nil {
		return Record{}, fmt.Errorf("create ref %q: %w", name, err)
	}
	rec := Record{Name: name, Target: target}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkNameConflict(name); err != nil {
		return Record{}, err
	}
	if force {
		err = s.backend.Update(rec, nil)
	} else {
		err = s.backend.Create(rec)
	}
	if err != nil {
		return Record{}, err
	}
	s.log.WithFields(logrus.Fields{"ref": name, "target": target.String(), "force": force}).Debug("reference written")
	return rec, nil
}

// Update moves an existing reference only if its current target is old.
func (s *Store) Update(name string, target Target, old Target) (Record, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Record{}, fmt.Errorf("update ref: %w", err)
	}
	if err := validateTarget(target); err != nil {
		return Record{}, fmt.Errorf("update ref %q: %w", name, err)
	}
	rec := Record{Name: name, Target: target}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A zero old means the record must not exist yet, so it is a create.
	if old == (Target{}) {
		if err := s.checkNameConflict(name); err != nil {
			return Record{}, err
		}
	}
	if err := s.backend.Update(rec, &old); err != nil {
		return Record{}, err
	}
	s.log.WithFields(logrus.Fields{"ref": name, "old": old.String(), "target": target.String()}).Debug("reference updated")
	return rec, nil
}

// checkNameConflict rejects a name that is a path prefix of an existing
// reference, or has an existing reference as a path prefix.
func (s *Store) checkNameConflict(name string) error {
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], "/")
		if _, err := s.backend.Read(parent); err == nil {
			return fmt.Errorf("create ref %q: %w: %q exists", name, ErrNameConflict, parent)
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("create ref %q: %w", name, err)
		}
	}
	children, err := s.backend.Names(name + "/")
	if err != nil {
		return fmt.Errorf("create ref %q: %w", name, err)
	}
	if len(children) > 0 {
		sort.Strings(children)
		return fmt.Errorf("create ref %q: %w: %q exists", name, ErrNameConflict, children[0])
	}
	return nil
}

// Delete removes the record stored under name.
func (s *Store) Delete(name string) error {
	if _, err := ValidateName(name); err != nil {
		return fmt.Errorf("delete ref: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(name); err != nil {
		return err
	}
	s.log.WithField("ref", name).Debug("reference deleted")
	return nil
}

// All yields every record whose name starts with prefix, ordered by name.
// Names are snapshotted when iteration starts and records are read lazily;
// a record deleted mid-iteration is skipped. Each range over the returned
// sequence starts afresh.
func (s *Store) All(prefix string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		names, err := s.backend.Names(prefix)
		if err != nil {
			yield(Record{}, fmt.Errorf("list refs: %w", err))
			return
		}
		sort.Strings(names)
		for _, name := range names {
			rec, err := s.backend.Read(name)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if !yield(rec, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// List collects All(prefix).
func (s *Store) List(prefix string) ([]Record, error) {
	var out []Record
	for rec, err := range s.All(prefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
