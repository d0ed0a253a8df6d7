package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// StoreOptions configures a Store. The zero value uses SHA-256 and a default
// logrus logger.
type StoreOptions struct {
	Algorithm Algorithm
	Logger    *logrus.Logger
}

// Store is a content-addressed object store. Identical content always yields
// the identical hash and is persisted at most once.
type Store struct {
	backend   Backend
	algorithm Algorithm
	log       *logrus.Logger
}

// NewStore wraps a persistence backend.
func NewStore(backend Backend, opts StoreOptions) *Store {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmSHA256
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Store{
		backend:   backend,
		algorithm: opts.Algorithm,
		log:       opts.Logger,
	}
}

// Algorithm returns the digest used for addressing.
func (s *Store) Algorithm() Algorithm { return s.algorithm }

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	ok, err := s.backend.HasRaw(h)
	return err == nil && ok
}

// Put stores an object and returns its content hash. The stored form is
// "type len\0content".
func (s *Store) Put(objType ObjectType, data []byte) (Hash, error) {
	if !objType.Valid() {
		return "", fmt.Errorf("object write: unknown type %q", objType)
	}
	h := s.algorithm.HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	raw := append(envelopeHeader(objType, len(data)), data...)
	if err := s.backend.WriteRaw(h, raw); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"hash": h, "type": objType, "size": len(data)}).Debug("object stored")
	return h, nil
}

// Get returns the object stored under h. The content is re-hashed so a
// damaged backend surfaces ErrCorrupt instead of wrong bytes.
func (s *Store) Get(h Hash) (*Object, error) {
	raw, err := s.backend.ReadRaw(h)
	if err != nil {
		return nil, err
	}
	objType, content, err := parseEnvelope(h, raw)
	if err != nil {
		return nil, err
	}
	if actual := s.algorithm.HashObject(objType, content); actual != h {
		return nil, fmt.Errorf("object read %s: %w (computed %s)", h, ErrCorrupt, actual)
	}
	return &Object{Hash: h, Type: objType, Data: content}, nil
}

// Read retrieves an object by hash, returning its type and raw content.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	obj, err := s.Get(h)
	if err != nil {
		return "", nil, err
	}
	return obj.Type, obj.Data, nil
}

// Delete removes an object. Only Prune should call this: references to the
// removed hash become dangling.
func (s *Store) Delete(h Hash) error {
	return s.backend.DeleteRaw(h)
}

// List returns every stored hash in sorted order.
func (s *Store) List() ([]Hash, error) {
	return s.backend.ListHashes()
}

// Count returns the number of stored objects.
func (s *Store) Count() (int, error) {
	hashes, err := s.backend.ListHashes()
	if err != nil {
		return 0, err
	}
	return len(hashes), nil
}

func parseEnvelope(h Hash, raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("object read %s: %w: invalid format (no NUL)", h, ErrCorrupt)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("object read %s: %w: invalid header %q", h, ErrCorrupt, header)
	}
	objType := ObjectType(parts[0])
	if !objType.Valid() {
		return "", nil, fmt.Errorf("object read %s: %w: unknown type %q", h, ErrCorrupt, parts[0])
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: invalid length %q", h, ErrCorrupt, parts[1])
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("object read %s: %w: length mismatch (header=%d, actual=%d)", h, ErrCorrupt, length, len(content))
	}
	return objType, content, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, want)
	}
	return data, nil
}

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Put(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	return s.Put(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Put(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Put(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	data, err := s.readTyped(h, TypeTag)
	if err != nil {
		return nil, err
	}
	return UnmarshalTag(data)
}

// WriteNote serializes and stores a NoteObj.
func (s *Store) WriteNote(n *NoteObj) (Hash, error) {
	return s.Put(TypeNote, MarshalNote(n))
}

// ReadNote reads and deserializes a NoteObj.
func (s *Store) ReadNote(h Hash) (*NoteObj, error) {
	data, err := s.readTyped(h, TypeNote)
	if err != nil {
		return nil, err
	}
	return UnmarshalNote(data)
}
