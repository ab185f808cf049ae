package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/msomdec/recall/internal/graph"
	"github.com/msomdec/recall/internal/service"
)

// maxRequestBytes bounds the size of a GraphQL request body.
const maxRequestBytes = 1 << 20

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// GraphQLHandler serves the GraphQL schema and carries the session cookie
// between the HTTP request and the resolvers.
type GraphQLHandler struct {
	relay  *relay.Handler
	auth   *service.AuthService
	cookie CookieConfig
}

// NewGraphQLHandler creates a new GraphQLHandler.
func NewGraphQLHandler(schema *graphql.Schema, auth *service.AuthService, cookie CookieConfig) *GraphQLHandler {
	return &GraphQLHandler{
		relay:  &relay.Handler{Schema: schema},
		auth:   auth,
		cookie: cookie,
	}
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	session := &httpSession{h: h, w: w, r: r}
	h.relay.ServeHTTP(w, r.WithContext(graph.WithSession(r.Context(), session)))
}

// httpSession resolves the caller from the Cookie header on first use.
type httpSession struct {
	h *GraphQLHandler
	w http.ResponseWriter
	r *http.Request

	once sync.Once
	user string
	ok   bool
}

func (s *httpSession) User() (string, bool) {
	s.once.Do(func() {
		header := strings.Join(s.r.Header.Values("Cookie"), "; ")
		s.user, s.ok = s.h.auth.Identify(header, s.h.cookie.Name)
	})
	return s.user, s.ok
}

func (s *httpSession) ClientIP() string {
	return clientIP(s.r)
}

func (s *httpSession) Start(token string, expiresAt time.Time) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.h.cookie.Name,
		Value:    token,
		Path:     s.h.cookie.Path,
		Expires:  expiresAt,
		MaxAge:   int(s.h.auth.Lifetime().Seconds()),
		HttpOnly: true,
		Secure:   s.h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *httpSession) End() {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.h.cookie.Name,
		Value:    "",
		Path:     s.h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
