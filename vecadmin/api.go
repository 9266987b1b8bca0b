package vecadmin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/randvec/vector"
	"modernc.org/sqlite/vtab"
)

// ErrInvariant is returned when a stored vector breaks an element invariant.
var ErrInvariant = errors.New("vecadmin: invariant violated")

// Module provides administrative operations via a virtual table.
// Usage:
//
//	CREATE VIRTUAL TABLE vec_admin USING vec_admin(op);
//	SELECT op FROM vec_admin WHERE op MATCH '3';      -- verify vector 3
//	SELECT op FROM vec_admin WHERE op MATCH '3:5000'; -- and require 5000 elements
//
// Returns a single row with op='verified:<count>' on success.
type Module struct{ db *sql.DB }

type Table struct{ db *sql.DB }

type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

// Register registers the vec_admin module. Call it before the handle opens
// its first connection.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "vec_admin", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *Module) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec_admin: need at least 3 args")
	}
	// Single TEXT column `op` reporting results.
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 1
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error          { return nil }
func (t *Table) Destroy() error             { return nil }

func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	id, length, err := parseOp(vals[0])
	if err != nil {
		return err
	}
	n, err := Verify(context.Background(), c.table.db, id, length)
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("verified:%d", n)}
	return nil
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vec_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }
func (c *Cursor) Close() error          { c.rows = nil; c.pos = 0; return nil }

// parseOp accepts "<id>" or "<id>:<length>" as TEXT, or a bare INTEGER id.
func parseOp(v vtab.Value) (id int64, length int, err error) {
	switch x := v.(type) {
	case int64:
		return x, 0, nil
	case []byte:
		return parseOpText(string(x))
	case string:
		return parseOpText(x)
	default:
		return 0, 0, fmt.Errorf("vec_admin: MATCH expects a vector id, got %T", v)
	}
}

func parseOpText(s string) (int64, int, error) {
	idPart, lengthPart, hasLength := strings.Cut(strings.TrimSpace(s), ":")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("vec_admin: invalid vector id %q", idPart)
	}
	if !hasLength {
		return id, 0, nil
	}
	length, err := strconv.Atoi(lengthPart)
	if err != nil || length <= 0 {
		return 0, 0, fmt.Errorf("vec_admin: invalid length %q", lengthPart)
	}
	return id, length, nil
}

// Verify checks that vector id exists, that its element values are pairwise
// distinct and, when length > 0, that it holds exactly length elements. It
// returns the element count.
func Verify(ctx context.Context, db *sql.DB, id int64, length int) (int, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, fmt.Errorf("%w: vector %d", vector.ErrNotFound, id)
	}
	var total, distinct int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT value) FROM elements WHERE vector_id = ?`, id).
		Scan(&total, &distinct)
	if err != nil {
		return 0, err
	}
	if total != distinct {
		return 0, fmt.Errorf("%w: vector %d has %d elements but %d distinct values", ErrInvariant, id, total, distinct)
	}
	if length > 0 && total != length {
		return 0, fmt.Errorf("%w: vector %d has %d elements, want %d", ErrInvariant, id, total, length)
	}
	return total, nil
}
