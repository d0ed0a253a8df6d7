package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestHashBytesDeterminism(t *testing.T) {
	data := []byte("hello world")
	h1 := HashBytes(data)
	h2 := HashBytes(data)
	if h1 != h2 {
		t.Errorf("HashBytes not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Hash length: got %d, want 64", len(h1))
	}
}

func TestHashObjectEnvelope(t *testing.T) {
	data := []byte("hello")
	h1 := HashObject(TypeBlob, data)
	h2 := HashBytes(data)
	if h1 == h2 {
		t.Error("HashObject should differ from HashBytes due to envelope")
	}

	// Same type+data => same hash
	if h3 := HashObject(TypeBlob, data); h1 != h3 {
		t.Error("HashObject not deterministic")
	}

	// Different type => different hash
	if h4 := HashObject(TypeNote, data); h1 == h4 {
		t.Error("Different types should produce different hashes")
	}
}

func TestAlgorithmsDiffer(t *testing.T) {
	data := []byte("same bytes")
	sha := AlgorithmSHA256.HashObject(TypeBlob, data)
	b3 := AlgorithmBLAKE3.HashObject(TypeBlob, data)
	if sha == b3 {
		t.Fatal("sha256 and blake3 produced the same hash")
	}
	if len(b3) != 64 {
		t.Fatalf("blake3 hash length = %d, want 64", len(b3))
	}
	if _, err := ParseHash(string(b3)); err != nil {
		t.Fatalf("ParseHash(blake3): %v", err)
	}
}

func TestParseHash(t *testing.T) {
	valid := HashBytes([]byte("x"))
	if _, err := ParseHash(string(valid)); err != nil {
		t.Fatalf("ParseHash(valid): %v", err)
	}
	for _, bad := range []string{"", "abc", string(valid[:63]) + "G", string(valid[:63]) + "A", string(valid) + "0"} {
		if _, err := ParseHash(bad); err == nil {
			t.Errorf("ParseHash(%q) succeeded, want error", bad)
		}
	}
}

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(NewLooseBackend(dir, true), StoreOptions{}), dir
}

func TestStorePutGetRoundTrip(t *testing.T) {
	backends := map[string]Backend{
		"loose-zstd":  NewLooseBackend(t.TempDir(), true),
		"loose-plain": NewLooseBackend(t.TempDir(), false),
		"memory":      NewMemoryBackend(),
	}
	inputs := []struct {
		typ  ObjectType
		data []byte
	}{
		{TypeBlob, []byte("hello world")},
		{TypeBlob, []byte{}},
		{TypeBlob, []byte{0, 1, 2, 0, 255}},
		{TypeNote, []byte("object x\n\nmsg")},
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			s := NewStore(backend, StoreOptions{})
			for _, in := range inputs {
				h, err := s.Put(in.typ, in.data)
				if err != nil {
					t.Fatalf("Put: %v", err)
				}
				if h != HashObject(in.typ, in.data) {
					t.Fatalf("Put hash = %s, want %s", h, HashObject(in.typ, in.data))
				}
				obj, err := s.Get(h)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if obj.Type != in.typ {
					t.Errorf("Type: got %q, want %q", obj.Type, in.typ)
				}
				if !bytes.Equal(obj.Data, in.data) {
					t.Errorf("Data: got %q, want %q", obj.Data, in.data)
				}
			}
		})
	}
}

func TestStorePutIsIdempotent(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{})
	h1, err := s.Put(TypeBlob, []byte("duplicate"))
	if err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	before, _ := s.Count()
	h2, err := s.Put(TypeBlob, []byte("duplicate"))
	if err != nil {
		t.Fatalf("Put 2: %v", err)
	}
	after, _ := s.Count()
	if h1 != h2 {
		t.Errorf("duplicate puts returned different hashes: %s vs %s", h1, h2)
	}
	if before != 1 || after != 1 {
		t.Errorf("count before=%d after=%d, want 1 and 1", before, after)
	}
}

func TestStoreConcurrentPutSameContent(t *testing.T) {
	s, _ := tempStore(t)
	const workers = 16
	hashes := make([]Hash, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			h, err := s.Put(TypeBlob, []byte("contended"))
			if err != nil {
				t.Errorf("Put: %v", err)
				return
			}
			hashes[i] = h
		}()
	}
	wg.Wait()

	for _, h := range hashes[1:] {
		if h != hashes[0] {
			t.Fatalf("concurrent puts diverged: %s vs %s", h, hashes[0])
		}
	}
	if n, err := s.Count(); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s, _ := tempStore(t)
	_, err := s.Get(HashBytes([]byte("never written")))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStoreFanoutLayoutIsZstdFramed(t *testing.T) {
	s, dir := tempStore(t)
	h, err := s.Put(TypeBlob, []byte("fanout test"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	objPath := filepath.Join(dir, "objects", string(h[:2]), string(h[2:]))
	data, err := os.ReadFile(objPath)
	if err != nil {
		t.Fatalf("expected fan-out file at %s: %v", objPath, err)
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		t.Fatalf("loose object is not zstd framed: % x", data[:4])
	}
}

func TestLooseBackendReadsPlainFiles(t *testing.T) {
	dir := t.TempDir()
	plain := NewStore(NewLooseBackend(dir, false), StoreOptions{})
	h, err := plain.Put(TypeBlob, []byte("written plain"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	compressed := NewStore(NewLooseBackend(dir, true), StoreOptions{})
	blob, err := compressed.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob via compressing backend: %v", err)
	}
	if string(blob.Data) != "written plain" {
		t.Fatalf("blob data = %q", blob.Data)
	}
}

func TestStoreGetDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(NewLooseBackend(dir, false), StoreOptions{})
	h, err := s.Put(TypeBlob, []byte("original"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	objPath := filepath.Join(dir, "objects", string(h[:2]), string(h[2:]))
	if err := os.WriteFile(objPath, []byte("blob 8\x00tampered"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = s.Get(h)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Get(tampered) error = %v, want ErrCorrupt", err)
	}
	if _, err := s.Verify(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Verify error = %v, want ErrCorrupt", err)
	}
}

func TestStoreBlake3RoundTrip(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{Algorithm: AlgorithmBLAKE3})
	h, err := s.WriteBlob(&Blob{Data: []byte("b3")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if h != AlgorithmBLAKE3.HashObject(TypeBlob, []byte("b3")) {
		t.Fatalf("hash %s was not computed with blake3", h)
	}
	if _, err := s.ReadBlob(h); err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
}

func TestStoreTypedReadMismatch(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{})
	h, err := s.WriteBlob(&Blob{Data: []byte("not a commit")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := s.ReadCommit(h); err == nil {
		t.Fatal("ReadCommit on a blob should fail")
	}
}

func TestStorePutRejectsUnknownType(t *testing.T) {
	s := NewStore(NewMemoryBackend(), StoreOptions{})
	if _, err := s.Put(ObjectType("bogus"), []byte("x")); err == nil {
		t.Fatal("Put with unknown type should fail")
	}
}
