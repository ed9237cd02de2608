package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"locki.app/backend/internal/config"
	"locki.app/backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppEnv:         "test",
		AllowedOrigins: []string{"http://localhost:3000"},
		JWTSecret:      "test-secret",
	}
	return NewServer(cfg, testutil.NewDB(t), nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signUp(t *testing.T, h http.Handler, username string) string {
	t.Helper()

	w := do(t, h, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email":    username + "@locki.test",
		"password": "password123",
		"username": username,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/api/feed", "/api/profile/me", "/api/notifications", "/api/search?q=ana"} {
		w := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := do(t, h, http.MethodGet, "/api/feed", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostShowsUpInFeed(t *testing.T) {
	h := newTestServer(t)
	token := signUp(t, h, "ana")

	w := do(t, h, http.MethodPost, "/api/posts", token, gin.H{
		"title":   "Morning focus",
		"hours":   1,
		"minutes": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var feed struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed.Data, 1)
	assert.Equal(t, "Morning focus", feed.Data[0].Title)

	w = do(t, h, http.MethodGet, "/api/stats/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://locki.app"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://locki.app", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, check(req), tt.origin)
	}
}
