// Package badgerstore keeps objects and references in a single Badger
// database. It implements both object.Backend and refs.Backend.
//
// Key layout:
//
//	obj/<hash>  -> object envelope as produced by object.Store
//	ref/<name>  -> Target.String()
//
// Reference writes run in one read-write transaction, so the existence or
// compare-and-swap check and the write commit together. Badger reports
// overlapping transactions with ErrConflict; those are retried.
package badgerstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
	"github.com/sirupsen/logrus"
)

const (
	objPrefix = "obj/"
	refPrefix = "ref/"

	conflictRetries    = 32
	conflictRetryDelay = time.Millisecond
)

// DB wraps an open Badger database.
type DB struct {
	db       *badger.DB
	log      *logrus.Logger
	inMemory bool
}

var (
	_ object.Backend = (*DB)(nil)
	_ refs.Backend   = (*DB)(nil)
)

// Options configures Open.
type Options struct {
	// InMemory keeps everything in memory; Path is ignored.
	InMemory bool
	Logger   *logrus.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.WithLogger(badgerLogger{logger.WithField("component", "badger")})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger store %q: %w", path, err)
	}
	return &DB{db: db, log: logger, inMemory: opts.InMemory}, nil
}

// badgerLogger demotes Badger's chatty info output to debug.
type badgerLogger struct {
	*logrus.Entry
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.Entry.Debugf(format, args...)
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// RunGC reclaims value-log space. It returns nil when nothing was rewritten.
func (d *DB) RunGC(discardRatio float64) error {
	if d.inMemory {
		return nil
	}
	for {
		err := d.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *DB) get(key string) ([]byte, bool, error) {
	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (d *DB) keys(prefix string) ([]string, error) {
	var out []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			out = append(out, string(it.Item().Key()))
		}
		return nil
	})
	return out, err
}

// update runs fn in a read-write transaction, retrying on conflict.
func (d *DB) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		d.log.WithField("attempt", attempt+1).Debug("badger transaction conflict, retrying")
		time.Sleep(conflictRetryDelay)
	}
	return err
}

// Object backend.

func (d *DB) ReadRaw(h object.Hash) ([]byte, error) {
	val, ok, err := d.get(objPrefix + string(h))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", h, err)
	}
	if !ok {
		return nil, fmt.Errorf("read object %s: %w", h, object.ErrNotFound)
	}
	return val, nil
}

func (d *DB) WriteRaw(h object.Hash, raw []byte) error {
	key := []byte(objPrefix + string(h))
	return d.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, raw)
	})
}

func (d *DB) HasRaw(h object.Hash) (bool, error) {
	_, ok, err := d.get(objPrefix + string(h))
	return ok, err
}

func (d *DB) DeleteRaw(h object.Hash) error {
	key := []byte(objPrefix + string(h))
	return d.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete object %s: %w", h, object.ErrNotFound)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (d *DB) ListHashes() ([]object.Hash, error) {
	keys, err := d.keys(objPrefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	out := make([]object.Hash, 0, len(keys))
	for _, k := range keys {
		out = append(out, object.Hash(strings.TrimPrefix(k, objPrefix)))
	}
	return out, nil
}

// Reference backend.

func readTarget(txn *badger.Txn, name string) (refs.Target, bool, error) {
	item, err := txn.Get([]byte(refPrefix + name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return refs.Target{}, false, nil
	}
	if err != nil {
		return refs.Target{}, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return refs.Target{}, false, err
	}
	target, err := refs.ParseTarget(string(val))
	if err != nil {
		return refs.Target{}, false, fmt.Errorf("ref %q: %w", name, err)
	}
	return target, true, nil
}

func (d *DB) Read(name string) (refs.Record, error) {
	var (
		target refs.Target
		ok     bool
	)
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		target, ok, err = readTarget(txn, name)
		return err
	})
	if err != nil {
		return refs.Record{}, fmt.Errorf("read ref %q: %w", name, err)
	}
	if !ok {
		return refs.Record{}, fmt.Errorf("read ref %q: %w", name, refs.ErrNotFound)
	}
	return refs.Record{Name: name, Target: target}, nil
}

func (d *DB) Create(rec refs.Record) error {
	absent := refs.Target{}
	return d.Update(rec, &absent)
}

func (d *DB) Update(rec refs.Record, old *refs.Target) error {
	return d.update(func(txn *badger.Txn) error {
		current, exists, err := readTarget(txn, rec.Name)
		if err != nil {
			return err
		}
		if old != nil {
			if *old == (refs.Target{}) && exists {
				return fmt.Errorf("update ref %q: %w", rec.Name, refs.ErrAlreadyExists)
			}
			if *old != (refs.Target{}) && (!exists || current != *old) {
				return fmt.Errorf("update ref %q: %w (expected %s, found %s)", rec.Name, refs.ErrStaleTarget, old, current)
			}
		}
		return txn.Set([]byte(refPrefix+rec.Name), []byte(rec.Target.String()))
	})
}

func (d *DB) Delete(name string) error {
	return d.update(func(txn *badger.Txn) error {
		_, exists, err := readTarget(txn, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("delete ref %q: %w", name, refs.ErrNotFound)
		}
		return txn.Delete([]byte(refPrefix + name))
	})
}

func (d *DB) Names(prefix string) ([]string, error) {
	keys, err := d.keys(refPrefix + prefix)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, refPrefix)
	}
	return keys, nil
}
