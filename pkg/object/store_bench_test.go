package object

import (
	"crypto/rand"
	"testing"
)

func benchPayloads(b *testing.B, n, size int) [][]byte {
	b.Helper()
	payloads := make([][]byte, n)
	for i := range payloads {
		buf := make([]byte, size)
		if _, err := rand.Read(buf); err != nil {
			b.Fatalf("rand.Read: %v", err)
		}
		payloads[i] = buf
	}
	return payloads
}

// BenchmarkStorePut writes distinct blobs so no write hits the Has fast path.
func BenchmarkStorePut(b *testing.B) {
	cases := []struct {
		name  string
		store func(b *testing.B) *Store
		size  int
	}{
		{"loose-zstd/100B", func(b *testing.B) *Store {
			return NewStore(NewLooseBackend(b.TempDir(), true), StoreOptions{})
		}, 100},
		{"loose-zstd/100KB", func(b *testing.B) *Store {
			return NewStore(NewLooseBackend(b.TempDir(), true), StoreOptions{})
		}, 100 * 1024},
		{"loose-plain/100KB", func(b *testing.B) *Store {
			return NewStore(NewLooseBackend(b.TempDir(), false), StoreOptions{})
		}, 100 * 1024},
		{"memory-blake3/100KB", func(b *testing.B) *Store {
			return NewStore(NewMemoryBackend(), StoreOptions{Algorithm: AlgorithmBLAKE3})
		}, 100 * 1024},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			s := tc.store(b)
			payloads := benchPayloads(b, b.N, tc.size)
			b.ReportAllocs()
			b.SetBytes(int64(tc.size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Put(TypeBlob, payloads[i]); err != nil {
					b.Fatalf("Put: %v", err)
				}
			}
		})
	}
}

func BenchmarkStoreGet(b *testing.B) {
	s := NewStore(NewLooseBackend(b.TempDir(), true), StoreOptions{})
	h, err := s.Put(TypeBlob, benchPayloads(b, 1, 4096)[0])
	if err != nil {
		b.Fatalf("Put: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Get(h); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}
