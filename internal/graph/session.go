package graph

import (
	"context"
	"time"
)

// Session is the transport state of one request: who is calling and how to
// hand out or revoke the session token.
type Session interface {
	// User returns the identity resolved from the request, if any.
	User() (string, bool)
	// ClientIP identifies the caller for rate limiting.
	ClientIP() string
	// Start hands the signed token to the client.
	Start(token string, expiresAt time.Time)
	// End revokes the client's token.
	End()
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	if s == nil {
		return anonymousSession{}
	}
	return s
}

// anonymousSession is used when no transport attached a session.
type anonymousSession struct{}

func (anonymousSession) User() (string, bool)    { return "", false }
func (anonymousSession) ClientIP() string        { return "" }
func (anonymousSession) Start(string, time.Time) {}
func (anonymousSession) End()                    {}
