package object

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Marshal serializes any payload to its canonical bytes.
func Marshal(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case *Blob:
		return MarshalBlob(v), nil
	case *TreeObj:
		return MarshalTree(v), nil
	case *CommitObj:
		return MarshalCommit(v), nil
	case *TagObj:
		return MarshalTag(v), nil
	case *NoteObj:
		return MarshalNote(v), nil
	default:
		return nil, fmt.Errorf("marshal: unsupported payload %T", p)
	}
}

// Unmarshal parses canonical bytes of the given type.
func Unmarshal(objType ObjectType, data []byte) (Payload, error) {
	switch objType {
	case TypeBlob:
		return UnmarshalBlob(data)
	case TypeTree:
		return UnmarshalTree(data)
	case TypeCommit:
		return UnmarshalCommit(data)
	case TypeTag:
		return UnmarshalTag(data)
	case TypeNote:
		return UnmarshalNote(data)
	default:
		return nil, fmt.Errorf("unmarshal: unsupported object type %q", objType)
	}
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted by Name for
// deterministic output. Each entry is one line:
//
//	mode hash name
//
// Name is last so it may contain spaces.
func MarshalTree(tr *TreeObj) []byte {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		mode := e.Mode
		if strings.TrimSpace(mode) == "" {
			mode = TreeModeFile
		}
		fmt.Fprintf(&buf, "%s %s %s\n", mode, e.Hash, e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return tr, nil
	}
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		switch parts[0] {
		case TreeModeDir, TreeModeFile, TreeModeExecutable:
		default:
			return nil, fmt.Errorf("unmarshal tree: unknown mode %q", parts[0])
		}
		h, err := ParseHash(parts[1])
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Mode: parts[0],
			Hash: h,
			Name: parts[2],
		})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author A
//	committer C
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	header, message, err := splitHeader("commit", data)
	if err != nil {
		return nil, err
	}

	c := &CommitObj{Message: message}
	err = eachHeaderLine("commit", header, func(key, val string) error {
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return err
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return err
			}
			c.Committer = sig
		case "signature":
			c.Signature = val
		default:
			return fmt.Errorf("unknown header key %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// TagObj
// ---------------------------------------------------------------------------

// MarshalTag serializes an annotated tag:
//
//	object H
//	type T
//	tag NAME
//	tagger S
//
//	message
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.TargetHash)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// UnmarshalTag parses a TagObj from its serialized form.
func UnmarshalTag(data []byte) (*TagObj, error) {
	header, message, err := splitHeader("tag", data)
	if err != nil {
		return nil, err
	}

	t := &TagObj{Message: message}
	err = eachHeaderLine("tag", header, func(key, val string) error {
		switch key {
		case "object":
			t.TargetHash = Hash(val)
		case "type":
			t.TargetType = ObjectType(val)
		case "tag":
			t.Name = val
		case "tagger":
			sig, err := ParseSignature(val)
			if err != nil {
				return err
			}
			t.Tagger = sig
		default:
			return fmt.Errorf("unknown header key %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// NoteObj
// ---------------------------------------------------------------------------

// MarshalNote serializes a NoteObj. The layout follows commits so notes carry
// the same authorship headers:
//
//	object H
//	author A
//	committer C
//	signature S  (optional)
//
//	message
func MarshalNote(n *NoteObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", n.TargetHash)
	fmt.Fprintf(&buf, "author %s\n", n.Author)
	fmt.Fprintf(&buf, "committer %s\n", n.Committer)
	if strings.TrimSpace(n.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", n.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(n.Message)
	return buf.Bytes()
}

// UnmarshalNote parses a NoteObj from its serialized form.
func UnmarshalNote(data []byte) (*NoteObj, error) {
	header, message, err := splitHeader("note", data)
	if err != nil {
		return nil, err
	}

	n := &NoteObj{Message: message}
	err = eachHeaderLine("note", header, func(key, val string) error {
		switch key {
		case "object":
			n.TargetHash = Hash(val)
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return err
			}
			n.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return err
			}
			n.Committer = sig
		case "signature":
			n.Signature = val
		default:
			return fmt.Errorf("unknown header key %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// splitHeader splits at the first blank line.
func splitHeader(kind string, data []byte) (string, string, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return "", "", fmt.Errorf("unmarshal %s: missing header/message separator", kind)
	}
	return string(data[:idx]), string(data[idx+2:]), nil
}

func eachHeaderLine(kind, header string, fn func(key, val string) error) error {
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return fmt.Errorf("unmarshal %s: malformed header line %q", kind, line)
		}
		if err := fn(key, val); err != nil {
			return fmt.Errorf("unmarshal %s: %w", kind, err)
		}
	}
	return nil
}
