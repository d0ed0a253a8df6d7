// Package refs stores named references and resolves symbolic chains to
// object hashes.
package refs

import (
	"fmt"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
)

const symbolicPrefix = "ref: "

// Target is what a reference points at: exactly one of Hash (direct) or
// Symbolic (another reference name) is set.
type Target struct {
	Hash     object.Hash
	Symbolic string
}

// Direct returns a target pointing at an object.
func Direct(h object.Hash) Target { return Target{Hash: h} }

// Symbolic returns a target pointing at another reference by name.
func Symbolic(name string) Target { return Target{Symbolic: name} }

// IsSymbolic reports whether t names another reference.
func (t Target) IsSymbolic() bool { return t.Symbolic != "" }

// String renders the on-disk form: a bare hash or "ref: <name>".
func (t Target) String() string {
	if t.IsSymbolic() {
		return symbolicPrefix + t.Symbolic
	}
	return string(t.Hash)
}

// ParseTarget parses the form produced by Target.String.
func ParseTarget(text string) (Target, error) {
	text = strings.TrimSpace(text)
	if name, ok := strings.CutPrefix(text, symbolicPrefix); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return Target{}, fmt.Errorf("parse target: empty symbolic name")
		}
		return Symbolic(name), nil
	}
	h, err := object.ParseHash(text)
	if err != nil {
		return Target{}, fmt.Errorf("parse target: %w", err)
	}
	return Direct(h), nil
}

// Record is one stored reference.
type Record struct {
	Name   string
	Target Target
}

func (r Record) String() string {
	return fmt.Sprintf("%s -> %s", r.Name, r.Target)
}

// Kind returns the namespace-derived kind of the record.
func (r Record) Kind() Kind { return KindOf(r.Name) }

// Shorthand returns the name with its namespace prefix stripped.
func (r Record) Shorthand() string { return Shorthand(r.Name) }

// Compare orders records by byte-wise name comparison.
func Compare(a, b Record) int {
	return strings.Compare(a.Name, b.Name)
}

// Kind classifies references by namespace.
type Kind int

const (
	KindOther Kind = iota
	KindBranch
	KindTag
	KindRemote
	KindNote
	KindPseudo
)

var kindPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"refs/heads/", KindBranch},
	{"refs/tags/", KindTag},
	{"refs/remotes/", KindRemote},
	{"refs/notes/", KindNote},
}

// KindOf classifies a full reference name.
func KindOf(name string) Kind {
	for _, p := range kindPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}
	if !strings.Contains(name, "/") {
		return KindPseudo
	}
	return KindOther
}

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindTag:
		return "tag"
	case KindRemote:
		return "remote"
	case KindNote:
		return "note"
	case KindPseudo:
		return "pseudo"
	default:
		return "other"
	}
}

// Shorthand strips the well-known namespace prefix from name:
// refs/heads/main -> main, refs/tags/v1 -> v1.
func Shorthand(name string) string {
	for _, p := range kindPrefixes {
		if short, ok := strings.CutPrefix(name, p.prefix); ok {
			return short
		}
	}
	if short, ok := strings.CutPrefix(name, "refs/"); ok {
		return short
	}
	return name
}
