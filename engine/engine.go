package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const memoryDSN = ":memory:"

// sqlitePragmas apply to every pooled connection.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// InitFunc runs on a freshly opened handle before its first connection is
// established, e.g. to register SQL modules.
type InitFunc func(db *sql.DB) error

// Connect opens and pings a database for driver. SQLite file paths get
// foreign keys, a busy timeout and WAL enabled on each connection. An
// in-memory SQLite database is pinned to a single connection so every
// session sees the same data. inits run before the ping.
func Connect(ctx context.Context, driver, dsn string, inits ...InitFunc) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		db, err = Open(SQLiteDSN(dsn))
	case DriverMySQL:
		db, err = openMySQL(dsn)
	default:
		return nil, fmt.Errorf("engine: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", driver, err)
	}
	for _, fn := range inits {
		if err := fn(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("engine: init %s: %w", driver, err)
		}
	}
	if driver != DriverMySQL && dsn == memoryDSN {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("engine: enable foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("engine: ping %s: %w", driver, err)
	}
	return db, nil
}

// SQLiteDSN turns a plain file path into a modernc URI carrying the
// connection pragmas. Explicit "file:" URIs keep their parameters and get
// every pragma they do not already set. In-memory DSNs are returned as is.
func SQLiteDSN(dsn string) string {
	if dsn == memoryDSN {
		return dsn
	}
	var b strings.Builder
	sep := byte('?')
	if strings.HasPrefix(dsn, "file:") {
		b.WriteString(dsn)
		if strings.Contains(dsn, "?") {
			sep = '&'
		}
	} else {
		b.WriteString("file:")
		b.WriteString(dsn)
	}
	lower := strings.ToLower(dsn)
	for _, p := range sqlitePragmas {
		name, _, _ := strings.Cut(p, "(")
		if strings.Contains(lower, "_pragma="+name+"(") {
			continue
		}
		b.WriteByte(sep)
		sep = '&'
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}
