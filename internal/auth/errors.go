package auth

import "errors"

var (
	ErrMissingCredentials = errors.New("username and password required")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenRevoked       = errors.New("token revoked")

	errDenylistUnavailable = errors.New("check denylist")
)
