package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/notch/pkg/object"
)

// The log stores absent or symbolic sides as this placeholder so every line
// has exactly four space-separated fields.
var reflogZero = strings.Repeat("0", 64)

// ReflogEntry is one recorded change of a reference. An empty hash on either
// side means the reference was absent or symbolic.
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

func (e ReflogEntry) line() string {
	return fmt.Sprintf("%s %s %d %s\n", reflogSide(e.OldHash), reflogSide(e.NewHash), e.Timestamp, e.Reason)
}

func reflogSide(h object.Hash) string {
	if h.IsZero() {
		return reflogZero
	}
	return string(h)
}

// parseReflogLine reports ok=false for lines it cannot read; those are
// skipped rather than failing the whole log.
func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 4)
	if len(fields) != 4 {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	side := func(s string) object.Hash {
		if s == reflogZero {
			return ""
		}
		return object.Hash(s)
	}
	return ReflogEntry{Ref: ref, OldHash: side(fields[0]), NewHash: side(fields[1]), Timestamp: ts, Reason: fields[3]}, true
}

func (b *FileBackend) reflogPath(ref string) string {
	return filepath.Join(b.root, "logs", filepath.FromSlash(ref))
}

func (b *FileBackend) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	if ref == "" {
		return nil
	}
	// Line breaks in the reason would split the entry.
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		reason = "update"
	}
	entry := ReflogEntry{OldHash: oldHash, NewHash: newHash, Timestamp: time.Now().Unix(), Reason: reason}

	path := b.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	if _, err := f.WriteString(entry.line()); err != nil {
		_ = f.Close()
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	return f.Close()
}

// ReadReflog returns up to limit entries for ref, newest first. A limit of
// zero or less returns everything; a ref with no log has no entries.
func (b *FileBackend) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	data, err := os.ReadFile(b.reflogPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reflog %s: %w", ref, err)
	}

	var entries []ReflogEntry
	for line := range strings.Lines(string(data)) {
		if e, ok := parseReflogLine(ref, line); ok {
			entries = append(entries, e)
		}
	}
	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
