package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/repo"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// loadSigner reads the SSH key named by keyPath, falling back to
// signing.key from the repository config and then the usual ~/.ssh keys.
func loadSigner(r *repo.Repo, keyPath string) (notes.Signer, error) {
	if strings.TrimSpace(keyPath) == "" {
		keyPath = r.Config.Signing.Key
	}
	resolvedPath, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("read signing key %q: %w", resolvedPath, err)
	}
	signer, pub, err := notes.NewSSHSigner(raw)
	if err != nil {
		return nil, fmt.Errorf("signing key %q: %w", resolvedPath, err)
	}
	r.Logger.WithFields(logrus.Fields{"key": resolvedPath, "fingerprint": ssh.FingerprintSHA256(pub)}).Debug("loaded signing key")
	return signer, nil
}

// loadTrustedKey reads an authorized_keys style public key line.
func loadTrustedKey(path string) (ssh.PublicKey, error) {
	expanded, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read public key %q: %w", expanded, err)
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse public key %q: %w", expanded, err)
	}
	return pub, nil
}

func resolveSigningKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		expanded, err := expandUserPath(path)
		if err != nil {
			return "", err
		}
		return expanded, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, candidate := range candidates {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no default SSH private key found in ~/.ssh (id_ed25519, id_ecdsa, id_rsa)")
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
