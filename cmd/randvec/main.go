// Command randvec generates vectors of unique random integers, stores them
// with their generation time and serves them back, optionally sorted.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
