package object

// Hash is a 64-character lowercase hex encoding of a 32-byte object digest.
type Hash string

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
	TypeNote   ObjectType = "note"
)

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit, TypeTag, TypeNote:
		return true
	}
	return false
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Payload is a decoded object body. The concrete type is one of *Blob,
// *TreeObj, *CommitObj, *TagObj or *NoteObj.
type Payload interface {
	Type() ObjectType
}

// Object is a stored object as returned by Store.Get: its identity, kind and
// canonical bytes.
type Object struct {
	Hash Hash
	Type ObjectType
	Data []byte
}

// Decode parses the canonical bytes into the typed payload for o.Type.
func (o *Object) Decode() (Payload, error) {
	return Unmarshal(o.Type, o.Data)
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

func (*Blob) Type() ObjectType { return TypeBlob }

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Name string
	Mode string
	Hash Hash
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == TreeModeDir }

// TreeObj holds a sorted list of tree entries.
type TreeObj struct {
	Entries []TreeEntry // sorted by Name
}

func (*TreeObj) Type() ObjectType { return TypeTree }

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Signature string
	Message   string
}

func (*CommitObj) Type() ObjectType { return TypeCommit }

// TagObj is an annotated tag pointing at another object.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     Signature
	Message    string
}

func (*TagObj) Type() ObjectType { return TypeTag }

// NoteObj carries a message attached to another object. TargetHash is the
// annotated object; it is embedded so a note can be verified against the ref
// that points at it.
type NoteObj struct {
	TargetHash Hash
	Author     Signature
	Committer  Signature
	Signature  string
	Message    string
}

func (*NoteObj) Type() ObjectType { return TypeNote }
