package auth

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrMissingClaims    = errors.New("token is missing required claims")
	ErrUnsupportedToken = errors.New("token type is not accepted here")
)
