package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satish1373/ag-devops/internal/service"
)

func login(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "password123"}

	rec := env.do(t, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[service.TokenResponse](t, rec).Token
}

func TestAuthHandlers(t *testing.T) {
	env := newTestEnv(t)
	token := login(t, env, "dev@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "dev@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "x@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "dev@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/verify", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "dev@example.com", body["email"])

	rec = env.do(t, http.MethodGet, "/api/auth/verify", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/auth/verify", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_OptionalScopesTodos(t *testing.T) {
	env := newTestEnv(t)
	alice := login(t, env, "alice@example.com")
	bob := login(t, env, "bob@example.com")

	rec := env.do(t, http.MethodPost, "/api/todos", map[string]any{"title": "alice only"}, "Authorization", "Bearer "+alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[service.TodoResponse](t, rec).ID

	rec = env.do(t, http.MethodPost, "/api/todos", map[string]any{"title": "shared"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/todos/%d", id), nil, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/todos/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/todos", nil, "Authorization", "Bearer "+alice)
	todos := decode[[]service.TodoResponse](t, rec)
	require.Len(t, todos, 1)
	assert.Equal(t, "alice only", todos[0].Title)

	rec = env.do(t, http.MethodGet, "/api/todos", nil)
	todos = decode[[]service.TodoResponse](t, rec)
	require.Len(t, todos, 1)
	assert.Equal(t, "shared", todos[0].Title)

	// A bad token is rejected even when auth is optional.
	rec = env.do(t, http.MethodGet, "/api/todos", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_Required(t *testing.T) {
	env := newTestEnv(t, withAuthRequired)

	rec := env.do(t, http.MethodGet, "/api/todos", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", decode[map[string]string](t, rec)["error"])

	token := login(t, env, "dev@example.com")
	rec = env.do(t, http.MethodGet, "/api/todos", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Public endpoints stay open.
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		query  string
		want   string
	}{
		{"Bearer abc", "", "abc"},
		{"bearer  abc ", "", "abc"},
		{"Basic abc", "", ""},
		{"", "xyz", "xyz"},
		{"", "", ""},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/api/ws?token="+tt.query, nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerToken(r), "header %q query %q", tt.header, tt.query)
	}
}
