package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
	"github.com/odvcencio/notch/pkg/storage/badgerstore"
	"github.com/sirupsen/logrus"
)

// DefaultBranch is the branch HEAD points at in a new repository.
const DefaultBranch = "main"

const badgerDir = "db"

// Init creates a new repository at path with the default configuration.
func Init(path string) (*Repo, error) {
	return InitWithConfig(path, nil)
}

// InitWithConfig creates a new repository at path. It creates .notch/,
// writes config.toml and points HEAD at refs/heads/main. Returns an error if
// .notch/ already exists.
func InitWithConfig(path string, cfg *Config) (*Repo, error) {
	dir := filepath.Join(path, DirName)

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", dir)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	dirs := []string{dir}
	if cfg.Core.Storage == StorageLoose {
		dirs = append(dirs,
			filepath.Join(dir, "objects"),
			filepath.Join(dir, "refs", "heads"),
			filepath.Join(dir, "refs", "tags"),
		)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}
	if err := writeConfig(dir, cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r, err := openAt(path, dir, cfg)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if _, err := r.Refs.Create("HEAD", refs.Symbolic("refs/heads/"+DefaultBranch), false); err != nil {
		r.Close()
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	r.Logger.WithFields(logrus.Fields{"dir": dir, "storage": cfg.Core.Storage, "hash": cfg.Core.Hash}).Debug("repository initialized")
	return r, nil
}

// Open searches upward from path for a .notch/ directory and opens the
// repository. Returns an error if no .notch/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		dir := filepath.Join(cur, DirName)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			cfg, err := readConfig(dir)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return openAt(cur, dir, cfg)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a notch repository (or any parent up to /)")
		}
		cur = parent
	}
}

// openAt wires the stores for the configured backend.
func openAt(root, dir string, cfg *Config) (*Repo, error) {
	logger := logrus.StandardLogger()
	r := &Repo{
		RootDir: root,
		Dir:     dir,
		Config:  cfg,
		Logger:  logger,
	}

	var (
		objBackend object.Backend
		refBackend refs.Backend
	)
	switch cfg.Core.Storage {
	case StorageBadger:
		db, err := badgerstore.Open(filepath.Join(dir, badgerDir), badgerstore.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		r.db = db
		objBackend, refBackend = db, db
	default:
		objBackend = object.NewLooseBackend(dir, cfg.Core.Compression != "none")
		r.fileRefs = refs.NewFileBackend(dir)
		refBackend = r.fileRefs
	}

	r.Objects = object.NewStore(objBackend, object.StoreOptions{Algorithm: cfg.Algorithm(), Logger: logger})
	r.Refs = refs.NewStore(refBackend, logger)
	r.Resolver = refs.NewResolver(r.Refs, cfg.Refs.MaxSymbolicDepth)
	r.Notes = notes.NewLayer(r.Objects, r.Refs, r.Resolver, logger)
	return r, nil
}
