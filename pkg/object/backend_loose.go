package object

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic prefixes every zstd frame. Loose files without it are read as
// plain envelopes, so compression can be toggled on an existing store.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// LooseBackend stores one file per object with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
type LooseBackend struct {
	root     string
	compress bool

	codecOnce sync.Once
	enc       *zstd.Encoder
	dec       *zstd.Decoder
	codecErr  error
}

// NewLooseBackend creates a backend rooted at the given directory. The
// objects/ subdirectory is created lazily on first write. When compress is
// true, envelopes are written as zstd frames.
func NewLooseBackend(root string, compress bool) *LooseBackend {
	return &LooseBackend{root: root, compress: compress}
}

func (b *LooseBackend) codec() (*zstd.Encoder, *zstd.Decoder, error) {
	b.codecOnce.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			b.codecErr = fmt.Errorf("zstd writer: %w", err)
			return
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			enc.Close()
			b.codecErr = fmt.Errorf("zstd reader: %w", err)
			return
		}
		b.enc, b.dec = enc, dec
	})
	return b.enc, b.dec, b.codecErr
}

// objectPath returns the filesystem path for a given hash.
func (b *LooseBackend) objectPath(h Hash) string {
	return filepath.Join(b.root, "objects", string(h[:2]), string(h[2:]))
}

// HasRaw reports whether a loose file exists for h.
func (b *LooseBackend) HasRaw(h Hash) (bool, error) {
	if len(h) < 3 {
		return false, nil
	}
	_, err := os.Stat(b.objectPath(h))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteRaw stores raw under h. Writes are atomic: data is written to a temp
// file and then renamed into place.
func (b *LooseBackend) WriteRaw(h Hash, raw []byte) error {
	if len(h) < 3 {
		return fmt.Errorf("object write: invalid hash %q", h)
	}
	payload := raw
	if b.compress {
		enc, _, err := b.codec()
		if err != nil {
			return fmt.Errorf("object write: %w", err)
		}
		payload = enc.EncodeAll(raw, nil)
	}

	dir := filepath.Join(b.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, b.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write rename: %w", err)
	}
	return nil
}

// ReadRaw returns the decompressed envelope stored for h.
func (b *LooseBackend) ReadRaw(h Hash) ([]byte, error) {
	if len(h) < 3 {
		return nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
	}
	data, err := os.ReadFile(b.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	_, dec, err := b.codec()
	if err != nil {
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("object read %s: decompress: %w", h, err)
	}
	return raw, nil
}

// DeleteRaw removes the loose file for h.
func (b *LooseBackend) DeleteRaw(h Hash) error {
	if len(h) < 3 {
		return fmt.Errorf("object delete %s: %w", h, ErrNotFound)
	}
	if err := os.Remove(b.objectPath(h)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object delete %s: %w", h, ErrNotFound)
		}
		return fmt.Errorf("object delete %s: %w", h, err)
	}
	return nil
}

// ListHashes walks the fan-out directories and returns all stored hashes,
// sorted.
func (b *LooseBackend) ListHashes() ([]Hash, error) {
	objectsDir := filepath.Join(b.root, "objects")
	fanout, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var out []Hash
	for _, d := range fanout {
		if !d.IsDir() || len(d.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(objectsDir, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", d.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			h, err := ParseHash(d.Name() + e.Name())
			if err != nil {
				continue
			}
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
