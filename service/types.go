package service

import "github.com/viant/randvec/vector"

// Summary describes a stored vector without its values.
type Summary struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	GenerationDuration float64 `json:"generation_duration"`
}

func newSummary(rec *vector.Record) Summary {
	return Summary{
		ID:                 rec.ID,
		Name:               rec.Name,
		Description:        rec.Description,
		GenerationDuration: rec.GenerationDuration,
	}
}

// Detail is a stored vector with its values in insertion order.
type Detail struct {
	Summary
	Values []int `json:"values"`
}

// Sorted is a stored vector's values in ascending order plus the time the
// ordering took.
type Sorted struct {
	ID           int64    `json:"id"`
	SortDuration float64  `json:"sort_duration"`
	SortTime     string   `json:"sort_time"`
	Mode         SortMode `json:"mode"`
	Values       []int    `json:"sorted_values"`
}

// ErrorResponse is the client-visible body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse maps err to its client-visible form.
func NewErrorResponse(err error) ErrorResponse {
	if IsNotFound(err) {
		return ErrorResponse{Error: "vector not found"}
	}
	return ErrorResponse{Error: err.Error()}
}
