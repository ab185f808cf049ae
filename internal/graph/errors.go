package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/msomdec/recall/internal/domain"
)

// Error codes reported in the "extensions.code" field.
const (
	CodeConflict        = "CONFLICT"
	CodeBadInput        = "BAD_USER_INPUT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// Error is a resolver error safe to show to clients.
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string { return e.Message }

// Extensions implements the graphql-go ResolverError interface.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// clientError maps err to a client-facing error. Errors outside the domain
// taxonomy are logged and replaced by a generic message.
func (r *Resolver) clientError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateID):
		return &Error{Message: domain.ErrDuplicateID.Error(), Code: CodeConflict}
	case errors.Is(err, domain.ErrInvalidInput):
		return &Error{Message: err.Error(), Code: CodeBadInput}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &Error{Message: domain.ErrInvalidCredentials.Error(), Code: CodeUnauthenticated}
	case errors.Is(err, domain.ErrUnauthenticated):
		return &Error{Message: domain.ErrUnauthenticated.Error(), Code: CodeUnauthenticated}
	case errors.Is(err, domain.ErrRateLimited):
		return &Error{Message: domain.ErrRateLimited.Error(), Code: CodeRateLimited}
	default:
		r.log.ErrorContext(ctx, "resolver failed", slog.String("op", op), slog.Any("error", err))
		return &Error{Message: "internal error", Code: CodeInternal}
	}
}
