// Package service implements the application's business operations on top
// of the store, cache, and job queue layers.
package service

import "errors"

// Service-level errors.
var (
	// ErrInvalidBatchAction is returned when a batch request names an
	// action other than COMPLETE or DELETE.
	ErrInvalidBatchAction = errors.New("invalid batch action")
)
