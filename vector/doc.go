// Package vector defines the persisted model of generated vectors and the
// store used to write and read them. It includes:
//   - Record and Element model types
//   - Store and Session interfaces
//   - SQLStore: SQLite/MySQL backed implementation
//   - Schema helpers for the vectors and elements tables
package vector
