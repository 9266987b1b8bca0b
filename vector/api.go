package vector

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no vector has the requested identifier.
var ErrNotFound = errors.New("vector: not found")

// Record represents one generation run.
type Record struct {
	// ID is assigned by the store on Create and never changes afterwards.
	ID int64

	// Name is derived from the run sequence number, e.g. "Vector_1".
	Name string

	Description string

	// GenerationDuration is the wall-clock generation time in seconds,
	// measured once when the vector is created.
	GenerationDuration float64

	// Values holds the element values when loaded together with the record.
	Values []int
}

// Element is one integer value of a vector. VectorID is a lookup key, the
// owning Record does not hold Elements by pointer.
type Element struct {
	ID         int64
	Value      int
	VectorID   int64
	Randomized bool
}

// NewElements builds one Element per value, all referencing vectorID.
func NewElements(vectorID int64, values []int, randomized bool) []Element {
	out := make([]Element, len(values))
	for i, v := range values {
		out[i] = Element{Value: v, VectorID: vectorID, Randomized: randomized}
	}
	return out
}

// ElementValues extracts the values of elements, keeping their order.
func ElementValues(elements []Element) []int {
	out := make([]int, len(elements))
	for i, e := range elements {
		out[i] = e.Value
	}
	return out
}

// Store is the durable home of vectors. A Store is opened once per process
// and hands out a Session per unit of work.
type Store interface {
	// Session starts a unit of work. The caller must Close it on every path.
	Session(ctx context.Context) (Session, error)

	// Close releases the underlying database handle.
	Close() error
}

// Session is a single transactional unit of work against a Store. Writes
// become visible only after Commit; Close without Commit discards them.
type Session interface {
	// Create inserts the record and returns its assigned identifier. The
	// record's ID field is updated as well.
	Create(ctx context.Context, rec *Record) (int64, error)

	// BulkCreate inserts all elements.
	BulkCreate(ctx context.Context, elements []Element) error

	// Vector returns the record with the given id, without its values. It
	// returns ErrNotFound when absent.
	Vector(ctx context.Context, id int64) (*Record, error)

	// Vectors returns all records ordered by identifier, without values.
	Vectors(ctx context.Context) ([]Record, error)

	// Elements returns the elements of a vector in insertion order.
	Elements(ctx context.Context, vectorID int64) ([]Element, error)

	// OrderedElements returns the elements of a vector ascending by value,
	// ordered by the database.
	OrderedElements(ctx context.Context, vectorID int64) ([]Element, error)

	Commit() error
	Close() error
}
