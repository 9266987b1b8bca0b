package vector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/viant/randvec/engine"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vectors.sqlite")
	db, err := engine.Connect(context.Background(), engine.DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("engine.Connect failed: %v", err)
	}
	store, err := NewSQLStore(context.Background(), db, SQLite, nil)
	if err != nil {
		_ = db.Close()
		t.Fatalf("NewSQLStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeVector(t *testing.T, store Store, rec *Record, values []int, randomized bool) int64 {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()

	id, err := sess.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := sess.BulkCreate(ctx, NewElements(id, values, randomized)); err != nil {
		t.Fatalf("BulkCreate failed: %v", err)
	}
	if err := sess.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return id
}

// TestSQLStore_WriteRead exercises the full write path followed by the
// read queries on a separate session.
func TestSQLStore_WriteRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &Record{Name: "Vector_1", Description: "test", GenerationDuration: 0.25}
	id := writeVector(t, store, rec, []int{7, 3, 9, 1}, true)
	if id <= 0 || rec.ID != id {
		t.Fatalf("unexpected id=%d rec.ID=%d", id, rec.ID)
	}

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()

	got, err := sess.Vector(ctx, id)
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	if got.Name != "Vector_1" || got.Description != "test" || got.GenerationDuration != 0.25 {
		t.Fatalf("unexpected record: %+v", got)
	}

	elems, err := sess.Elements(ctx, id)
	if err != nil {
		t.Fatalf("Elements failed: %v", err)
	}
	if values := ElementValues(elems); !equalInts(values, []int{7, 3, 9, 1}) {
		t.Fatalf("Elements values = %v, want insertion order [7 3 9 1]", values)
	}
	for _, e := range elems {
		if e.VectorID != id || !e.Randomized || e.ID == 0 {
			t.Fatalf("unexpected element %+v", e)
		}
	}

	ordered, err := sess.OrderedElements(ctx, id)
	if err != nil {
		t.Fatalf("OrderedElements failed: %v", err)
	}
	if values := ElementValues(ordered); !equalInts(values, []int{1, 3, 7, 9}) {
		t.Fatalf("OrderedElements values = %v, want [1 3 7 9]", values)
	}
}

func TestSQLStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()

	if _, err := sess.Vector(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Vector(42) err = %v, want ErrNotFound", err)
	}
	elems, err := sess.OrderedElements(ctx, 42)
	if err != nil {
		t.Fatalf("OrderedElements failed: %v", err)
	}
	if len(elems) != 0 {
		t.Fatalf("expected no elements, got %d", len(elems))
	}
}

// TestSQLStore_CloseWithoutCommit verifies that an abandoned session leaves
// nothing behind.
func TestSQLStore_CloseWithoutCommit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	id, err := sess.Create(ctx, &Record{Name: "Vector_1", Description: "d"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := sess.BulkCreate(ctx, NewElements(id, []int{1, 2}, false)); err != nil {
		t.Fatalf("BulkCreate failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	reader, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer reader.Close()
	records, err := reader.Vectors(ctx)
	if err != nil {
		t.Fatalf("Vectors failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no vectors after rollback, got %d", len(records))
	}
}

// TestSQLStore_DuplicateValueFails checks that a duplicate element aborts
// the bulk insert.
func TestSQLStore_DuplicateValueFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()
	id, err := sess.Create(ctx, &Record{Name: "Vector_1", Description: "d"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := sess.BulkCreate(ctx, NewElements(id, []int{5, 5}, false)); err == nil {
		t.Fatalf("expected BulkCreate to fail on duplicate values")
	}
}

func TestSQLStore_Vectors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	writeVector(t, store, &Record{Name: "Vector_1", Description: "d", GenerationDuration: 0.1}, []int{1}, false)
	writeVector(t, store, &Record{Name: "Vector_2", Description: "d", GenerationDuration: 0.2}, []int{2}, false)

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	defer sess.Close()
	records, err := sess.Vectors(ctx)
	if err != nil {
		t.Fatalf("Vectors failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Vectors returned %d records, want 2", len(records))
	}
	if records[0].Name != "Vector_1" || records[1].Name != "Vector_2" {
		t.Errorf("Vectors order = [%s, %s], want [Vector_1, Vector_2]", records[0].Name, records[1].Name)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
