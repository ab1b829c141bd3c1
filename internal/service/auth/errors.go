// Package auth provides authentication services: JWT issuance/validation
// and password hashing/verification.
package auth

import "errors"

// Authentication errors returned by the JWT service.
var (
	// ErrInvalidToken is returned when a token fails signature or structural
	// validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrWrongTokenType is returned when an access token is presented where
	// a refresh token is required, or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)
