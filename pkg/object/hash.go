package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// HashSize is the digest width in bytes; a Hash is twice as many hex chars.
const HashSize = 32

// Algorithm names the digest used to address objects. Both supported
// algorithms produce 32-byte digests, so hashes are interchangeable in shape
// but never in value.
type Algorithm string

const (
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means SHA-256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", AlgorithmSHA256:
		return AlgorithmSHA256, nil
	case AlgorithmBLAKE3:
		return AlgorithmBLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", name)
	}
}

func (a Algorithm) newHash() hash.Hash {
	if a == AlgorithmBLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// HashBytes hashes data without an object envelope.
func (a Algorithm) HashBytes(data []byte) Hash {
	h := a.newHash()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashObject hashes the envelope "type len\0content", mirroring Git's object
// hashing with a 32-byte digest.
func (a Algorithm) HashObject(objType ObjectType, data []byte) Hash {
	h := a.newHash()
	h.Write(envelopeHeader(objType, len(data)))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashBytes computes the raw SHA-256 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	return AlgorithmSHA256.HashBytes(data)
}

// HashObject computes the SHA-256 object hash of data.
func HashObject(objType ObjectType, data []byte) Hash {
	return AlgorithmSHA256.HashObject(objType, data)
}

func envelopeHeader(objType ObjectType, n int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", objType, n))
}

// ParseHash validates that s is a full-width lowercase hex digest.
func ParseHash(s string) (Hash, error) {
	if len(s) != HashSize*2 {
		return "", fmt.Errorf("invalid object hash %q: want %d hex characters", s, HashSize*2)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid object hash %q: non-hex character %q", s, c)
		}
	}
	return Hash(s), nil
}

// Short returns the first 8 characters, as shown in listings.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// IsZero reports whether h is empty.
func (h Hash) IsZero() bool { return h == "" }
