package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/recall/internal/graph"
	"github.com/msomdec/recall/internal/handler"
	"github.com/msomdec/recall/internal/repository/memory"
	"github.com/msomdec/recall/internal/service"
	"github.com/msomdec/recall/internal/token"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, cfg graph.Config) *httptest.Server {
	t.Helper()
	log := discardLogger()

	// Use the minimum cost for fast tests.
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := token.NewHMAC([]byte(testJWTSecret))
	require.NoError(t, err)

	drafts := memory.NewAutoSaveRepository()
	cards := service.NewCardService(memory.NewCardRepository(), drafts, log)
	auth := service.NewAuthService(memory.NewCredentialsRepository(map[string]string{"joe": string(hash)}),
		tokens, tokens, drafts, log)

	schema, err := graph.NewSchema(graph.NewResolver(cards, auth, cfg, log))
	require.NoError(t, err)

	gql := handler.NewGraphQLHandler(schema, auth, handler.CookieConfig{Name: "jwt", Path: "/", Secure: true})
	srv := httptest.NewServer(handler.NewRouter(gql, pinger{}, log))
	t.Cleanup(srv.Close)
	return srv
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string            `json:"message"`
		Extensions map[string]string `json:"extensions"`
	} `json:"errors"`
}

func postGraphQL(t *testing.T, srv *httptest.Server, cookies []*http.Cookie, query string) (*http.Response, gqlResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out gqlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	return nil
}

func TestIntegration_LoginCreateReviewLogout(t *testing.T) {
	srv := newTestServer(t, graph.Config{RequireAuth: true})

	// Anonymous callers are rejected.
	_, out := postGraphQL(t, srv, nil, `mutation { createCard(prompt: "p", solution: "s") { id } }`)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", out.Errors[0].Extensions["code"])

	// Login sets the session cookie.
	resp, out := postGraphQL(t, srv, nil, `{ login(userName: "joe", password: "password123") { userName } }`)
	require.Empty(t, out.Errors)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie, "expected jwt cookie after login")
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((30 * time.Minute).Seconds()), cookie.MaxAge)

	// The cookie authenticates subsequent requests.
	_, out = postGraphQL(t, srv, []*http.Cookie{{Name: "other", Value: "x"}, cookie},
		`mutation { createCard(prompt: "p", solution: "s") { id state disabled } }`)
	require.Empty(t, out.Errors)
	var created struct {
		CreateCard struct {
			ID       string `json:"id"`
			State    string `json:"state"`
			Disabled bool   `json:"disabled"`
		} `json:"createCard"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Len(t, created.CreateCard.ID, 36)
	assert.Equal(t, "New", created.CreateCard.State)
	assert.True(t, created.CreateCard.Disabled)

	// A duplicated session cookie degrades to anonymous.
	_, out = postGraphQL(t, srv, []*http.Cookie{cookie, cookie}, `{ findNextCard { id } }`)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", out.Errors[0].Extensions["code"])

	// Logout expires the cookie.
	resp, out = postGraphQL(t, srv, []*http.Cookie{cookie}, `mutation { logout }`)
	require.Empty(t, out.Errors)
	expired := sessionCookie(resp)
	require.NotNil(t, expired)
	assert.Equal(t, -1, expired.MaxAge)
}

func TestLoginFailureSetsNoCookie(t *testing.T) {
	srv := newTestServer(t, graph.Config{RequireAuth: true})

	resp, out := postGraphQL(t, srv, nil, `{ login(userName: "joe", password: "nope") { userName } }`)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "user not found or invalid password", out.Errors[0].Message)
	assert.Nil(t, sessionCookie(resp))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, graph.Config{})

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealthz_StoreDown(t *testing.T) {
	w := httptest.NewRecorder()
	handler.HandleHealthz(pinger{err: errors.New("gone")}, discardLogger())(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, graph.Config{})

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, graph.Config{})

	resp, err := srv.Client().Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := srv.Client().Get(srv.URL + "/graphql")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestRecoverer(t *testing.T) {
	r := handler.NewRouter(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), nil, discardLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}
