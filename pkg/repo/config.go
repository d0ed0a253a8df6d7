package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
)

const configFile = "config.toml"

// Storage backends selectable with core.storage.
const (
	StorageLoose  = "loose"
	StorageBadger = "badger"
)

// Environment variables that override [user].
const (
	EnvAuthorName  = "NOTCH_AUTHOR_NAME"
	EnvAuthorEmail = "NOTCH_AUTHOR_EMAIL"
)

// Config is the content of .notch/config.toml.
type Config struct {
	Core    CoreConfig    `toml:"core"`
	Refs    RefsConfig    `toml:"refs"`
	Notes   NotesConfig   `toml:"notes"`
	User    UserConfig    `toml:"user"`
	Signing SigningConfig `toml:"signing"`
}

type CoreConfig struct {
	// Hash is the object digest: "sha256" or "blake3".
	Hash string `toml:"hash"`
	// Storage is "loose" (files under .notch/) or "badger".
	Storage string `toml:"storage"`
	// Compression is "zstd" or "none"; loose storage only.
	Compression string `toml:"compression"`
}

type RefsConfig struct {
	MaxSymbolicDepth int `toml:"max_symbolic_depth"`
}

type NotesConfig struct {
	// Ref is the default notes namespace.
	Ref string `toml:"ref"`
}

type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type SigningConfig struct {
	// Key is a path to an SSH private key used by --sign.
	Key string `toml:"key"`
}

// DefaultConfig is written by Init when no options override it.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Hash:        string(object.AlgorithmSHA256),
			Storage:     StorageLoose,
			Compression: "zstd",
		},
		Refs:  RefsConfig{MaxSymbolicDepth: refs.DefaultMaxDepth},
		Notes: NotesConfig{Ref: notes.DefaultNamespace},
	}
}

// normalize fills unset fields with defaults and rejects unknown values.
func (c *Config) normalize() error {
	def := DefaultConfig()
	if strings.TrimSpace(c.Core.Hash) == "" {
		c.Core.Hash = def.Core.Hash
	}
	if _, err := object.ParseAlgorithm(c.Core.Hash); err != nil {
		return fmt.Errorf("core.hash: %w", err)
	}
	switch c.Core.Storage {
	case "":
		c.Core.Storage = def.Core.Storage
	case StorageLoose, StorageBadger:
	default:
		return fmt.Errorf("core.storage: unknown backend %q", c.Core.Storage)
	}
	switch c.Core.Compression {
	case "":
		c.Core.Compression = def.Core.Compression
	case "zstd", "none":
	default:
		return fmt.Errorf("core.compression: unknown value %q", c.Core.Compression)
	}
	if c.Refs.MaxSymbolicDepth <= 0 {
		c.Refs.MaxSymbolicDepth = def.Refs.MaxSymbolicDepth
	}
	ns, err := notes.NormalizeNamespace(c.Notes.Ref)
	if err != nil {
		return fmt.Errorf("notes.ref: %w", err)
	}
	c.Notes.Ref = ns
	return nil
}

// Algorithm returns the configured digest.
func (c *Config) Algorithm() object.Algorithm {
	alg, err := object.ParseAlgorithm(c.Core.Hash)
	if err != nil {
		return object.AlgorithmSHA256
	}
	return alg
}

func configPath(dir string) string {
	return filepath.Join(dir, configFile)
}

// readConfig reads and normalizes dir/config.toml. A missing file yields the
// defaults.
func readConfig(dir string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(configPath(dir), cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// writeConfig atomically replaces dir/config.toml.
func writeConfig(dir string, cfg *Config) error {
	tmp, err := os.CreateTemp(dir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, configPath(dir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// WriteConfig persists cfg. Storage settings take effect on the next Open.
func (r *Repo) WriteConfig(cfg *Config) error {
	if err := cfg.normalize(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := writeConfig(r.Dir, cfg); err != nil {
		return err
	}
	r.Config = cfg
	return nil
}

// Signature returns the identity for new objects at time now: environment
// first, then [user], then a placeholder.
func (r *Repo) Signature(now time.Time) object.Signature {
	name := strings.TrimSpace(os.Getenv(EnvAuthorName))
	if name == "" {
		name = strings.TrimSpace(r.Config.User.Name)
	}
	if name == "" {
		name = "unknown"
	}
	email := strings.TrimSpace(os.Getenv(EnvAuthorEmail))
	if email == "" {
		email = strings.TrimSpace(r.Config.User.Email)
	}
	return object.NewSignature(name, email, now)
}
