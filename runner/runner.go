package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/viant/randvec/generator"
	"github.com/viant/randvec/metrics"
	"github.com/viant/randvec/vector"
	"go.uber.org/zap"
)

// Description is stored with every generated vector.
const Description = "Vector of unique integers"

// ErrPersistence matches any PersistenceError via errors.Is.
var ErrPersistence = errors.New("runner: persistence failure")

// PersistenceError reports a failed write of one run. Runs committed before
// it remain stored.
type PersistenceError struct {
	Run int
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("runner: run %d: persistence failure: %v", e.Run, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) hold.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Params configures a batch.
type Params struct {
	Runs         int
	Length       int
	UpperBound   int
	Reproducible bool
}

// Validate checks parameters before any generation or I/O happens.
func (p Params) Validate() error {
	if p.Runs <= 0 {
		return fmt.Errorf("%w: runs must be positive, got %d", generator.ErrInvalidParameters, p.Runs)
	}
	if p.Length <= 0 {
		return fmt.Errorf("%w: length must be positive, got %d", generator.ErrInvalidParameters, p.Length)
	}
	if p.UpperBound < p.Length {
		return fmt.Errorf("%w: upper bound %d below length %d", generator.ErrInvalidParameters, p.UpperBound, p.Length)
	}
	return nil
}

// GenerateFunc draws a vector; generator.Generate is the default.
type GenerateFunc func(length, upperBound int, reproducible bool) ([]int, error)

// Orchestrator runs generation batches against a Store.
type Orchestrator struct {
	store    vector.Store
	generate GenerateFunc
	observer metrics.Observer
	log      *zap.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGenerator replaces the vector generator.
func WithGenerator(fn GenerateFunc) Option {
	return func(o *Orchestrator) { o.generate = fn }
}

// WithObserver sets the timing observer.
func WithObserver(obs metrics.Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithClock replaces time.Now, used for timing generation.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator writing to store.
func New(store vector.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		generate: generator.Generate,
		observer: metrics.Noop{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch executes p.Runs runs strictly one after another. Each run
// generates a vector, then stores it with its elements in one transaction.
// The first failure stops the batch; the records committed so far are
// returned together with the error.
func (o *Orchestrator) RunBatch(ctx context.Context, p Params) ([]vector.Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	records := make([]vector.Record, 0, p.Runs)
	for i := 1; i <= p.Runs; i++ {
		rec, err := o.run(ctx, i, p)
		if err != nil {
			o.log.Error("run failed", zap.Int("run", i), zap.Error(err))
			return records, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (o *Orchestrator) run(ctx context.Context, index int, p Params) (*vector.Record, error) {
	o.log.Info("starting run", zap.Int("run", index))
	start := o.now()
	values, err := o.generate(p.Length, p.UpperBound, p.Reproducible)
	elapsed := o.now().Sub(start)
	if err != nil {
		return nil, fmt.Errorf("runner: run %d: %w", index, err)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	o.observer.ObserveGeneration(elapsed)
	o.log.Info("finished run", zap.Int("run", index))
	o.log.Info("generation time",
		zap.Int("run", index),
		zap.Float64("seconds", math.Round(elapsed.Seconds()*1e4)/1e4))

	rec := &vector.Record{
		Name:               fmt.Sprintf("Vector_%d", index),
		Description:        Description,
		GenerationDuration: elapsed.Seconds(),
		Values:             values,
	}
	if err := o.persist(ctx, rec, !p.Reproducible); err != nil {
		return nil, &PersistenceError{Run: index, Err: err}
	}
	return rec, nil
}

// persist writes rec and its elements in one session, committing on success
// and rolling back on any other exit.
func (o *Orchestrator) persist(ctx context.Context, rec *vector.Record, randomized bool) (err error) {
	sess, err := o.store.Session(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	id, err := sess.Create(ctx, rec)
	if err != nil {
		return err
	}
	if err = sess.BulkCreate(ctx, vector.NewElements(id, rec.Values, randomized)); err != nil {
		return err
	}
	if err = sess.Commit(); err != nil {
		return err
	}
	o.log.Debug("vector persisted", zap.Int64("id", id), zap.Int("elements", len(rec.Values)))
	return nil
}
