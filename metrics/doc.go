// Package metrics records generation and sort timings.
package metrics
