// Package vecadmin exposes administrative checks over stored vectors as a
// SQLite virtual table, so they can be run from plain SQL.
package vecadmin
