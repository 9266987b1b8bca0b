package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/viant/randvec/metrics"
	"github.com/viant/randvec/sorter"
	"github.com/viant/randvec/vector"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the requested vector does not exist.
var ErrNotFound = vector.ErrNotFound

// SortMode selects which ordering mechanism GetSorted uses and times.
type SortMode string

const (
	// SortQuery lets the database order the elements (ORDER BY value).
	SortQuery SortMode = "query"
	// SortPartition fetches elements unordered and sorts them with sorter.Sort.
	SortPartition SortMode = "partition"
)

// ParseSortMode validates a configured sort mode.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(s); m {
	case SortQuery, SortPartition:
		return m, nil
	case "":
		return SortQuery, nil
	default:
		return "", fmt.Errorf("service: unknown sort mode %q", s)
	}
}

// Service serves read-only requests. It holds no mutable state of its own;
// every call opens its own store session, so calls may run concurrently.
type Service struct {
	store    vector.Store
	mode     SortMode
	observer metrics.Observer
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSortMode sets the sort mode, SortQuery by default.
func WithSortMode(mode SortMode) Option {
	return func(s *Service) { s.mode = mode }
}

// WithObserver sets the timing observer.
func WithObserver(obs metrics.Observer) Option {
	return func(s *Service) { s.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock replaces time.Now, used for timing sorts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service reading from store.
func New(store vector.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		mode:     SortQuery,
		observer: metrics.Noop{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the configured sort mode.
func (s *Service) Mode() SortMode { return s.mode }

// GetVector returns the vector with its values in insertion order.
func (s *Service) GetVector(ctx context.Context, id int64) (rec *vector.Record, err error) {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(sess, &err)

	rec, err = sess.Vector(ctx, id)
	if err != nil {
		return nil, err
	}
	elems, err := sess.Elements(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Values = vector.ElementValues(elems)
	return rec, nil
}

// GetSorted returns the vector's values in ascending order and the time
// spent retrieving and ordering them. Only that step is timed; the lookup
// that checks the vector exists is not.
func (s *Service) GetSorted(ctx context.Context, id int64) (values []int, elapsed time.Duration, err error) {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer closeSession(sess, &err)

	if _, err = sess.Vector(ctx, id); err != nil {
		return nil, 0, err
	}

	start := s.now()
	values, err = s.ordered(ctx, sess, id)
	elapsed = s.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	s.observer.ObserveSort(string(s.mode), elapsed, err)
	if err != nil {
		return nil, 0, err
	}
	s.log.Debug("vector sorted",
		zap.Int64("id", id),
		zap.String("mode", string(s.mode)),
		zap.Duration("elapsed", elapsed))
	return values, elapsed, nil
}

func (s *Service) ordered(ctx context.Context, sess vector.Session, id int64) ([]int, error) {
	switch s.mode {
	case SortPartition:
		elems, err := sess.Elements(ctx, id)
		if err != nil {
			return nil, err
		}
		return sorter.Sort(vector.ElementValues(elems)), nil
	default:
		elems, err := sess.OrderedElements(ctx, id)
		if err != nil {
			return nil, err
		}
		return vector.ElementValues(elems), nil
	}
}

// ListVectors returns a summary of every stored vector.
func (s *Service) ListVectors(ctx context.Context) (out []Summary, err error) {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(sess, &err)

	records, err := sess.Vectors(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]Summary, len(records))
	for i := range records {
		out[i] = newSummary(&records[i])
	}
	return out, nil
}

// VectorDetail returns the vector with its values.
func (s *Service) VectorDetail(ctx context.Context, id int64) (*Detail, error) {
	rec, err := s.GetVector(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Summary: newSummary(rec), Values: rec.Values}, nil
}

// SortedDetail returns the sorted values of a vector with the sort time.
func (s *Service) SortedDetail(ctx context.Context, id int64) (*Sorted, error) {
	values, elapsed, err := s.GetSorted(ctx, id)
	if err != nil {
		return nil, err
	}
	seconds := RoundSeconds(elapsed)
	return &Sorted{
		ID:           id,
		SortDuration: seconds,
		SortTime:     fmt.Sprintf("%.4f seconds", seconds),
		Mode:         s.mode,
		Values:       values,
	}, nil
}

// RoundSeconds converts d to seconds rounded to 4 decimal places.
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1e4) / 1e4
}

// closeSession releases a read session, reporting a Close failure only if
// nothing else failed first.
func closeSession(sess vector.Session, err *error) {
	if cerr := sess.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// IsNotFound reports whether err means the vector does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
