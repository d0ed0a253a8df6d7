package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/sirupsen/logrus"
)

// CommitTree writes a commit for tree with the given parents, authored and
// committed by the configured identity. signer may be nil.
func (r *Repo) CommitTree(tree object.Hash, parents []object.Hash, message string, signer notes.Signer) (object.Hash, error) {
	if _, err := r.Objects.ReadTree(tree); err != nil {
		return "", fmt.Errorf("commit tree: %w", err)
	}
	for _, p := range parents {
		if _, err := r.Objects.ReadCommit(p); err != nil {
			return "", fmt.Errorf("commit tree: parent %s: %w", p, err)
		}
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit tree: message is required")
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	sig := r.Signature(time.Now())
	if err := sig.Validate(); err != nil {
		return "", fmt.Errorf("commit tree: %w", err)
	}
	c := &object.CommitObj{
		TreeHash:  tree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	if signer != nil {
		s, err := signer(object.CommitSigningPayload(c))
		if err != nil {
			return "", fmt.Errorf("commit tree: sign: %w", err)
		}
		c.Signature = s
	}

	h, err := r.Objects.WriteCommit(c)
	if err != nil {
		return "", fmt.Errorf("commit tree: %w", err)
	}
	r.Logger.WithFields(logrus.Fields{"hash": h.Short(), "tree": tree.Short(), "parents": len(parents)}).Debug("commit written")
	return h, nil
}
