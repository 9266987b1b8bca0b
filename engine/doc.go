// Package engine opens the relational database backing the vector store.
// SQLite goes through the pure-Go modernc.org/sqlite driver; MySQL through
// github.com/go-sql-driver/mysql.
package engine
