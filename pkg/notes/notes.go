// Package notes attaches messages to objects through a notes namespace.
//
// A note is a NoteObj stored in the object store and a Direct reference
// named <namespace>/<hex[0:2]>/<hex[2:]> pointing at it. The NoteObj embeds
// the hash of the annotated object, so a note found by name can be checked
// against the target it claims to annotate.
package notes

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refname"
	"github.com/odvcencio/notch/pkg/refs"
	"github.com/sirupsen/logrus"
)

// DefaultNamespace is used when no namespace is given.
const DefaultNamespace = "refs/notes/commits"

const namespacePrefix = "refs/notes/"

var (
	ErrNotFound         = errors.New("note not found")
	ErrInvalidNamespace = errors.New("invalid notes namespace")
)

// Signer produces a signature string over a signing payload.
type Signer func(payload []byte) (string, error)

// Note is a message attached to an object.
type Note struct {
	// Ref is the full reference name holding the note.
	Ref string
	// ID is the hash of the stored NoteObj.
	ID        object.Hash
	Target    object.Hash
	Message   string
	Author    object.Signature
	Committer object.Signature
	Signature string
}

// AttachOptions tunes Attach. The zero value writes to DefaultNamespace and
// refuses to replace an existing note.
type AttachOptions struct {
	Namespace string
	Force     bool
	Signer    Signer
}

// Layer composes an object store, a reference store and a resolver.
type Layer struct {
	objects  *object.Store
	refs     *refs.Store
	resolver *refs.Resolver
	log      *logrus.Logger
}

// NewLayer returns a notes layer over the given stores.
func NewLayer(objects *object.Store, refStore *refs.Store, resolver *refs.Resolver, logger *logrus.Logger) *Layer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Layer{objects: objects, refs: refStore, resolver: resolver, log: logger}
}

// NormalizeNamespace fills in the default and checks that ns is a valid
// reference name under refs/notes/.
func NormalizeNamespace(ns string) (string, error) {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return DefaultNamespace, nil
	}
	if !strings.HasPrefix(ns, namespacePrefix) {
		return "", fmt.Errorf("%w: %q is not under %s", ErrInvalidNamespace, ns, namespacePrefix)
	}
	norm, err := refname.Normalize(ns, refname.FormatNormal)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidNamespace, err)
	}
	return norm, nil
}

// RefName returns the reference name holding the note for target in ns.
func RefName(ns string, target object.Hash) (string, error) {
	ns, err := NormalizeNamespace(ns)
	if err != nil {
		return "", err
	}
	h, err := object.ParseHash(string(target))
	if err != nil {
		return "", fmt.Errorf("note target: %w", err)
	}
	return ns + "/" + string(h[:2]) + "/" + string(h[2:]), nil
}

// targetFromRef reverses RefName.
func targetFromRef(ns, name string) (object.Hash, bool) {
	rest, ok := strings.CutPrefix(name, ns+"/")
	if !ok {
		return "", false
	}
	fan, tail, ok := strings.Cut(rest, "/")
	if !ok || len(fan) != 2 {
		return "", false
	}
	h, err := object.ParseHash(fan + tail)
	if err != nil {
		return "", false
	}
	return h, true
}

// Attach stores message as a note on target. Without opts.Force an existing
// note fails with refs.ErrAlreadyExists.
func (l *Layer) Attach(target object.Hash, message string, author, committer object.Signature, opts AttachOptions) (*Note, error) {
	name, err := RefName(opts.Namespace, target)
	if err != nil {
		return nil, fmt.Errorf("attach note: %w", err)
	}
	if err := author.Validate(); err != nil {
		return nil, fmt.Errorf("attach note: author: %w", err)
	}
	if err := committer.Validate(); err != nil {
		return nil, fmt.Errorf("attach note: committer: %w", err)
	}

	nobj := &object.NoteObj{
		TargetHash: target,
		Author:     author,
		Committer:  committer,
		Message:    message,
	}
	if opts.Signer != nil {
		sig, err := opts.Signer(object.NoteSigningPayload(nobj))
		if err != nil {
			return nil, fmt.Errorf("attach note: sign: %w", err)
		}
		nobj.Signature = sig
	}

	id, err := l.objects.WriteNote(nobj)
	if err != nil {
		return nil, fmt.Errorf("attach note: %w", err)
	}
	if _, err := l.refs.Create(name, refs.Direct(id), opts.Force); err != nil {
		return nil, fmt.Errorf("attach note: %w", err)
	}

	l.log.WithFields(logrus.Fields{"ref": name, "target": target.Short(), "note": id.Short()}).Debug("note attached")
	return noteFrom(name, id, nobj), nil
}

// Find returns the note attached to target in ns.
func (l *Layer) Find(target object.Hash, ns string) (*Note, error) {
	name, err := RefName(ns, target)
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return l.load(name, target)
}

func (l *Layer) load(name string, target object.Hash) (*Note, error) {
	h, ok, err := l.resolver.ResolveName(name)
	if errors.Is(err, refs.ErrNotFound) || (err == nil && !ok) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if err != nil {
		return nil, fmt.Errorf("find note %s: %w", target, err)
	}

	nobj, err := l.objects.ReadNote(h)
	if err != nil {
		return nil, fmt.Errorf("find note %s: %w", target, err)
	}
	if nobj.TargetHash != target {
		return nil, fmt.Errorf("find note %s: %w: note %s annotates %s", target, object.ErrCorrupt, h.Short(), nobj.TargetHash)
	}
	return noteFrom(name, h, nobj), nil
}

// Remove deletes the note reference for target. The note object itself is
// left for garbage collection.
func (l *Layer) Remove(target object.Hash, ns string) error {
	name, err := RefName(ns, target)
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	if err := l.refs.Delete(name); err != nil {
		if errors.Is(err, refs.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return fmt.Errorf("remove note: %w", err)
	}
	l.log.WithField("ref", name).Debug("note removed")
	return nil
}

// All yields every note in ns ordered by reference name. References under
// the namespace that do not follow the fan-out layout are skipped.
func (l *Layer) All(ns string) iter.Seq2[*Note, error] {
	return func(yield func(*Note, error) bool) {
		ns, err := NormalizeNamespace(ns)
		if err != nil {
			yield(nil, err)
			return
		}
		for rec, err := range l.refs.All(ns + "/") {
			if err != nil {
				yield(nil, err)
				return
			}
			target, ok := targetFromRef(ns, rec.Name)
			if !ok {
				continue
			}
			note, err := l.load(rec.Name, target)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if !yield(note, err) || err != nil {
				return
			}
		}
	}
}

// List collects All(ns).
func (l *Layer) List(ns string) ([]*Note, error) {
	var out []*Note
	for n, err := range l.All(ns) {
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Target loads the object the note annotates, or nil when it cannot be
// loaded.
func (l *Layer) Target(n *Note) *object.Object {
	if n == nil {
		return nil
	}
	obj, err := l.objects.Get(n.Target)
	if err != nil {
		l.log.WithFields(logrus.Fields{"ref": n.Ref, "target": n.Target}).WithError(err).Debug("note target unavailable")
		return nil
	}
	return obj
}

func noteFrom(name string, id object.Hash, n *object.NoteObj) *Note {
	return &Note{
		Ref:       name,
		ID:        id,
		Target:    n.TargetHash,
		Message:   n.Message,
		Author:    n.Author,
		Committer: n.Committer,
		Signature: n.Signature,
	}
}

// Payload rebuilds the NoteObj for n, as needed for signature checks.
func (n *Note) Payload() *object.NoteObj {
	return &object.NoteObj{
		TargetHash: n.Target,
		Author:     n.Author,
		Committer:  n.Committer,
		Signature:  n.Signature,
		Message:    n.Message,
	}
}
