// Package generator draws vectors of unique random integers.
package generator
