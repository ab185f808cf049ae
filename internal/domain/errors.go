package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateID        = errors.New("duplicate key: id already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("user not found or invalid password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many attempts")
)
