package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SQLStore implements Store on top of database/sql. It owns db and closes it
// on Close.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// NewSQLStore creates a SQL-backed Store and ensures the schema exists.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, log *zap.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := EnsureSchema(ctx, db, dialect); err != nil {
		return nil, err
	}
	log.Debug("vector schema ready", zap.String("dialect", string(dialect)))
	return &SQLStore{db: db, dialect: dialect, log: log}, nil
}

// DB exposes the underlying handle, e.g. for registering SQL modules.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Session begins a transaction that backs the returned Session.
func (s *SQLStore) Session(ctx context.Context) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: begin tx: %w", err)
	}
	return &sqlSession{tx: tx, log: s.log}, nil
}

// Close shuts down the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type sqlSession struct {
	tx   *sql.Tx
	log  *zap.Logger
	done bool
}

func (s *sqlSession) Create(ctx context.Context, rec *Record) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("vector: record is nil")
	}
	res, err := s.tx.ExecContext(ctx,
		`INSERT INTO vectors(name, description, generation_duration) VALUES(?, ?, ?)`,
		rec.Name, rec.Description, rec.GenerationDuration)
	if err != nil {
		return 0, fmt.Errorf("vector: insert vector %s: %w", rec.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("vector: last insert id: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (s *sqlSession) BulkCreate(ctx context.Context, elements []Element) error {
	if len(elements) == 0 {
		return nil
	}
	stmt, err := s.tx.PrepareContext(ctx,
		`INSERT INTO elements(value, vector_id, generated_with_randomization) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("vector: prepare element insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range elements {
		if _, err := stmt.ExecContext(ctx, e.Value, e.VectorID, e.Randomized); err != nil {
			return fmt.Errorf("vector: insert element %d of vector %d: %w", e.Value, e.VectorID, err)
		}
	}
	return nil
}

func (s *sqlSession) Vector(ctx context.Context, id int64) (*Record, error) {
	var rec Record
	err := s.tx.QueryRowContext(ctx,
		`SELECT id, name, description, generation_duration FROM vectors WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.Description, &rec.GenerationDuration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vector %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("vector: query vector %d: %w", id, err)
	}
	return &rec, nil
}

func (s *sqlSession) Vectors(ctx context.Context) ([]Record, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT id, name, description, generation_duration FROM vectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("vector: query vectors: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.GenerationDuration); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqlSession) Elements(ctx context.Context, vectorID int64) ([]Element, error) {
	return s.queryElements(ctx,
		`SELECT id, value, vector_id, generated_with_randomization FROM elements WHERE vector_id = ? ORDER BY id`,
		vectorID)
}

func (s *sqlSession) OrderedElements(ctx context.Context, vectorID int64) ([]Element, error) {
	return s.queryElements(ctx,
		`SELECT id, value, vector_id, generated_with_randomization FROM elements WHERE vector_id = ? ORDER BY value`,
		vectorID)
}

func (s *sqlSession) queryElements(ctx context.Context, query string, vectorID int64) ([]Element, error) {
	rows, err := s.tx.QueryContext(ctx, query, vectorID)
	if err != nil {
		return nil, fmt.Errorf("vector: query elements of %d: %w", vectorID, err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		var e Element
		if err := rows.Scan(&e.ID, &e.Value, &e.VectorID, &e.Randomized); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqlSession) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("vector: commit: %w", err)
	}
	s.log.Debug("session committed")
	return nil
}

// Close rolls back the transaction unless it was committed.
func (s *sqlSession) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("vector: rollback: %w", err)
	}
	return nil
}

// Ensure SQLStore satisfies the Store interface.
var _ Store = (*SQLStore)(nil)
