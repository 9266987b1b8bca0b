// Package storetest provides vector stores for tests.
package storetest

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/viant/randvec/engine"
	"github.com/viant/randvec/vector"
)

// ErrInjected is returned by FailingStore.
var ErrInjected = errors.New("storetest: injected failure")

// NewSQLite opens a file-backed SQLite store in t.TempDir and closes it when
// the test ends. inits are passed to engine.Connect.
func NewSQLite(t testing.TB, inits ...engine.InitFunc) *vector.SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "randvec.sqlite")
	db, err := engine.Connect(context.Background(), engine.DriverSQLite, path, inits...)
	if err != nil {
		t.Fatalf("engine.Connect(%s) failed: %v", path, err)
	}
	store, err := vector.NewSQLStore(context.Background(), db, vector.SQLite, nil)
	if err != nil {
		_ = db.Close()
		t.Fatalf("vector.NewSQLStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// FailingStore wraps a Store and makes sessions fail their BulkCreate from
// the FailAt-th session on (1-based). Zero never fails.
type FailingStore struct {
	vector.Store
	FailAt   int64
	sessions atomic.Int64
}

// Session implements vector.Store.
func (s *FailingStore) Session(ctx context.Context) (vector.Session, error) {
	sess, err := s.Store.Session(ctx)
	if err != nil {
		return nil, err
	}
	n := s.sessions.Add(1)
	if s.FailAt > 0 && n >= s.FailAt {
		return &failingSession{Session: sess}, nil
	}
	return sess, nil
}

type failingSession struct {
	vector.Session
}

func (s *failingSession) BulkCreate(context.Context, []vector.Element) error {
	return ErrInjected
}

// ReadVector loads a vector and its elements in insertion order.
func ReadVector(t testing.TB, store vector.Store, id int64) (*vector.Record, []vector.Element) {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()
	rec, err := sess.Vector(ctx, id)
	if err != nil {
		t.Fatalf("Vector(%d) failed: %v", id, err)
	}
	elems, err := sess.Elements(ctx, id)
	if err != nil {
		t.Fatalf("Elements(%d) failed: %v", id, err)
	}
	return rec, elems
}

// CountVectors returns the number of stored vectors.
func CountVectors(t testing.TB, store vector.Store) int {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()
	records, err := sess.Vectors(ctx)
	if err != nil {
		t.Fatalf("Vectors failed: %v", err)
	}
	return len(records)
}
