package repo

import (
	"errors"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
	"github.com/odvcencio/notch/pkg/storage/badgerstore"
	"github.com/sirupsen/logrus"
)

// DirName is the metadata directory created at the repository root.
const DirName = ".notch"

// Repo represents an opened notch repository.
type Repo struct {
	RootDir string // directory containing .notch/
	Dir     string // .notch/ directory

	Config   *Config
	Objects  *object.Store
	Refs     *refs.Store
	Resolver *refs.Resolver
	Notes    *notes.Layer
	Logger   *logrus.Logger

	fileRefs *refs.FileBackend
	db       *badgerstore.DB
}

// Close releases the storage backends. Loose-file repositories hold nothing
// open, so Close is a no-op for them.
func (r *Repo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// ErrReflogUnsupported is returned by ReadReflog for backends without a
// reflog.
var ErrReflogUnsupported = errors.New("reflog not available for this storage backend")
