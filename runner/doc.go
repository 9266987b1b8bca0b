// Package runner drives batches of vector generation runs, timing each
// generation and persisting the result as one transaction per run.
package runner
