// Package sorter provides the in-memory partition sort used to order the
// values of a stored vector.
package sorter
