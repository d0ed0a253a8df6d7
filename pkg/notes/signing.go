package notes

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"golang.org/x/crypto/ssh"
)

// SignaturePrefix tags signatures produced by NewSSHSigner. The full form is
// "sshsig-v1:<format>:<base64 public key>:<base64 signature blob>".
const SignaturePrefix = "sshsig-v1"

var (
	ErrUnsigned         = errors.New("note is not signed")
	ErrInvalidSignature = errors.New("invalid note signature")
)

// NewSSHSigner returns a Signer backed by a PEM-encoded SSH private key.
func NewSSHSigner(privateKey []byte) (Signer, ssh.PublicKey, error) {
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("parse signing key: %w", err)
	}
	pub := signer.PublicKey()
	pubB64 := base64.StdEncoding.EncodeToString(pub.Marshal())

	return func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		sigB64 := base64.StdEncoding.EncodeToString(sig.Blob)
		return fmt.Sprintf("%s:%s:%s:%s", SignaturePrefix, sig.Format, pubB64, sigB64), nil
	}, pub, nil
}

// VerifySignature checks n's signature over its signing payload and returns
// the public key that made it. If trusted is non-nil the key must match it.
func VerifySignature(n *Note, trusted ssh.PublicKey) (ssh.PublicKey, error) {
	if n == nil || strings.TrimSpace(n.Signature) == "" {
		return nil, ErrUnsigned
	}
	parts := strings.SplitN(n.Signature, ":", 4)
	if len(parts) != 4 || parts[0] != SignaturePrefix {
		return nil, fmt.Errorf("%w: unrecognized format", ErrInvalidSignature)
	}
	pubRaw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidSignature, err)
	}
	pub, err := ssh.ParsePublicKey(pubRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidSignature, err)
	}
	blob, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrInvalidSignature, err)
	}

	if trusted != nil && string(trusted.Marshal()) != string(pub.Marshal()) {
		return nil, fmt.Errorf("%w: signed by untrusted key %s", ErrInvalidSignature, ssh.FingerprintSHA256(pub))
	}

	payload := object.NoteSigningPayload(n.Payload())
	if err := pub.Verify(payload, &ssh.Signature{Format: parts[1], Blob: blob}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub, nil
}
