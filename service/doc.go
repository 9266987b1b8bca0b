// Package service reads stored vectors back and orders them on demand,
// reporting how long the ordering took. It also shapes the results handed to
// a routing layer: listings, vector details and sorted details.
package service
