// Package common defines shared sentinel errors used across the layers of
// authgate. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Login-path errors. ErrInvalidCredentials deliberately covers both the
	// unknown-email and wrong-password cases so responses cannot be used to
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	// Verification-flow errors.
	ErrEmailAlreadyVerified = errors.New("email already verified")

	// Token lifecycle errors. ErrTokenExpired means the signature checked out
	// but the token is past its expiry; ErrInvalidToken covers everything
	// else (bad signature, malformed payload, wrong purpose).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrMissingToken = errors.New("missing token")
)
