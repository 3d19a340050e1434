// Package badger persists cached responses on local disk with BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/JakeFAU/embedscraper/internal/cache"
	"github.com/JakeFAU/embedscraper/internal/logging"
)

const keyPrefix = "resp:"

var errClosed = errors.New("badger cache closed")

// Store is a BadgerDB-backed cache.Cache. Expiry is delegated to Badger's
// per-entry TTL.
type Store struct {
	db *badgerdb.DB
}

// Open creates or reopens the database under dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	opts := badgerdb.DefaultOptions(dir).
		WithLogger(zapAdapter{logging.OrNop(logger).Named("badger").Sugar()}).
		WithNumVersionsToKeep(1)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Get implements cache.Cache.
func (s *Store) Get(_ context.Context, key string) (*cache.Entry, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	e, err := cache.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Set implements cache.Cache.
func (s *Store) Set(_ context.Context, key string, e *cache.Entry, ttl time.Duration) error {
	raw, err := cache.Encode(e)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.SetEntry(badgerdb.NewEntry([]byte(keyPrefix+key), raw).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Ping implements cache.Cache.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errClosed
	}
	return nil
}

// Name implements cache.Cache.
func (s *Store) Name() string { return "badger" }

// Close implements cache.Cache.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

// zapAdapter satisfies badger.Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (a zapAdapter) Errorf(f string, v ...any)   { a.s.Errorf(f, v...) }
func (a zapAdapter) Warningf(f string, v ...any) { a.s.Warnf(f, v...) }
func (a zapAdapter) Infof(f string, v ...any)    { a.s.Debugf(f, v...) }
func (a zapAdapter) Debugf(f string, v ...any)   { a.s.Debugf(f, v...) }
