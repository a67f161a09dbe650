package services

import "errors"

var (
	ErrDebugDisabled = errors.New("debug mode disabled")
	ErrInvalidToken  = errors.New("invalid token")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnauthorized  = errors.New("unauthorized")
)
