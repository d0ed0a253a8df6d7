package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/odvcencio/notch/pkg/object"
)

var ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
	lockSuffix        = ".lock"
)

// FileBackend stores one file per reference below root: HEAD and other
// one-level names at the top, everything else under refs/. A file holds a
// hash or "ref: <name>" followed by a newline. Writes take a <name>.lock
// file with O_EXCL and rename it into place, so separate processes sharing
// root serialize per reference.
type FileBackend struct {
	root string
}

func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

// Root returns the directory the backend stores references under.
func (b *FileBackend) Root() string { return b.root }

func (b *FileBackend) refPath(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

func (b *FileBackend) Read(name string) (Record, error) {
	target, ok, err := readRefFile(b.refPath(name))
	if err != nil {
		return Record{}, fmt.Errorf("read ref %q: %w", name, err)
	}
	if !ok {
		return Record{}, fmt.Errorf("read ref %q: %w", name, ErrNotFound)
	}
	return Record{Name: name, Target: target}, nil
}

func (b *FileBackend) Create(rec Record) error {
	absent := Target{}
	return b.write(rec, &absent, "create")
}

func (b *FileBackend) Update(rec Record, old *Target) error {
	return b.write(rec, old, "update")
}

// write performs the lockfile + rename update. If old is provided, the
// update only succeeds when the current target matches it.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (b *FileBackend) write(rec Record, old *Target, reason string) error {
	name := rec.Name
	refPath := b.refPath(name)

	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + lockSuffix
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	current, exists, err := readRefFile(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old target: %w", name, err)
	}
	if old != nil {
		if *old == (Target{}) && exists {
			return fmt.Errorf("update ref %q: %w", name, ErrAlreadyExists)
		}
		if *old != (Target{}) && (!exists || current != *old) {
			return fmt.Errorf(
				"update ref %q: %w (expected %s, found %s)",
				name,
				ErrStaleTarget,
				old,
				current,
			)
		}
	}

	if _, err := lockFile.WriteString(rec.Target.String() + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := b.appendReflog(name, current.Hash, rec.Target.Hash, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: current.Hash,
			NewHash: rec.Target.Hash,
			Err:     err,
		}
	}
	return nil
}

func (b *FileBackend) Delete(name string) error {
	refPath := b.refPath(name)
	if _, exists, err := readRefFile(refPath); err != nil {
		return fmt.Errorf("delete ref %q: %w", name, err)
	} else if !exists {
		return fmt.Errorf("delete ref %q: %w", name, ErrNotFound)
	}

	lockPath := refPath + lockSuffix
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("delete ref %q: lock: %w", name, err)
	}
	_ = lockFile.Close()
	lockHeld := true
	defer func() {
		if lockHeld {
			_ = os.Remove(lockPath)
		}
	}()

	current, exists, err := readRefFile(refPath)
	if err != nil {
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("delete ref %q: %w", name, ErrNotFound)
	}
	if err := os.Remove(refPath); err != nil {
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	_ = os.Remove(lockPath)
	lockHeld = false
	b.pruneEmptyParents(filepath.Dir(refPath))

	if err := b.appendReflog(name, current.Hash, "", "delete"); err != nil {
		return &RefUpdateReflogError{Ref: name, OldHash: current.Hash, Err: err}
	}
	return nil
}

// pruneEmptyParents removes empty directories left under refs/<namespace>/
// so a later reference may reuse the path as a file. The namespace
// directories themselves (refs/heads, refs/tags) are kept.
func (b *FileBackend) pruneEmptyParents(dir string) {
	stop := filepath.Join(b.root, "refs")
	for strings.HasPrefix(dir, stop+string(filepath.Separator)) && filepath.Dir(dir) != stop {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Names lists references under refs/ plus one-level pseudo-refs such as
// HEAD stored at the top of root.
func (b *FileBackend) Names(prefix string) ([]string, error) {
	var names []string

	top, err := os.ReadDir(b.root)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	for _, e := range top {
		if e.IsDir() || !isPseudoRefFile(e.Name()) {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	refsRoot := filepath.Join(b.root, "refs")
	err = filepath.WalkDir(refsRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), lockSuffix) {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return names, nil
}

func isPseudoRefFile(name string) bool {
	if name == "" || name[0] == '_' || name[len(name)-1] == '_' {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefFile returns ok == false when no file exists at refPath.
func readRefFile(refPath string) (Target, bool, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		// A directory at refPath, or a file where a parent directory should
		// be, means there is no record under this exact name.
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.EISDIR) {
			return Target{}, false, nil
		}
		return Target{}, false, err
	}
	target, err := ParseTarget(string(data))
	if err != nil {
		return Target{}, false, err
	}
	return target, true, nil
}
