package vector

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the SQL flavour used for DDL.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS vectors (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL,
    generation_duration REAL NOT NULL CHECK (generation_duration >= 0)
);`, `
CREATE TABLE IF NOT EXISTS elements (
    id                           INTEGER PRIMARY KEY AUTOINCREMENT,
    value                        INTEGER NOT NULL,
    vector_id                    INTEGER NOT NULL REFERENCES vectors(id),
    generated_with_randomization INTEGER NOT NULL,
    UNIQUE(vector_id, value)
);`}

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS vectors (
    id                  BIGINT AUTO_INCREMENT PRIMARY KEY,
    name                VARCHAR(50) NOT NULL,
    description         VARCHAR(255) NOT NULL,
    generation_duration DOUBLE NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS elements (
    id                           BIGINT AUTO_INCREMENT PRIMARY KEY,
    value                        INT NOT NULL,
    vector_id                    BIGINT NOT NULL,
    generated_with_randomization BOOLEAN NOT NULL,
    UNIQUE KEY uq_elements_vector_value (vector_id, value),
    CONSTRAINT fk_elements_vector FOREIGN KEY (vector_id) REFERENCES vectors(id)
);`}

// Schema returns the DDL statements for the dialect, one statement each.
func (d Dialect) Schema() ([]string, error) {
	switch d {
	case SQLite, "":
		return sqliteSchema, nil
	case MySQL:
		return mysqlSchema, nil
	default:
		return nil, fmt.Errorf("vector: unsupported dialect %q", d)
	}
}

// EnsureSchema creates the vectors and elements tables if they do not exist.
// Statements are executed one by one since MySQL rejects multi-statement
// Exec by default.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts, err := dialect.Schema()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vector: apply schema: %w", err)
		}
	}
	return nil
}
