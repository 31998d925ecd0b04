package middleware

import (
	"bytes"
	"budget-server/src/logger"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, _ := UserID(r.Context())
	w.Header().Set("X-User", Username(r.Context()))
	if IsSuperAdmin(r.Context()) {
		w.Header().Set("X-Admin", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte{byte('0' + id)})
}

func TestJWTAuthMiddleware(t *testing.T) {
	h := JWTAuthMiddleware(testSecret)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{
		"user_id": 3, "username": "alice", "super_admin": true,
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-User"))
	assert.Equal(t, "true", rec.Header().Get("X-Admin"))
	assert.Equal(t, "3", rec.Body.String())
}

func TestJWTAuthMiddlewareRejects(t *testing.T) {
	h := JWTAuthMiddleware(testSecret)(http.HandlerFunc(echoUser))

	cases := map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-token",
		"expired": "Bearer " + signed(t, jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no id":   "Bearer " + signed(t, jwt.MapClaims{"username": "x", "exp": time.Now().Add(time.Hour).Unix()}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestJWTAuthMiddlewareRejectsAllWithoutSecret(t *testing.T) {
	h := JWTAuthMiddleware("")(http.HandlerFunc(echoUser))

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1, "super_admin": true, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/sync/prune", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSuperAdminMiddleware(t *testing.T) {
	h := SuperAdminMiddleware(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/sync/prune", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithUser(req.Context(), 1, "bob", false)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithUser(req.Context(), 1, "root", true)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDemoModeMiddleware(t *testing.T) {
	h := DemoModeMiddleware(true)(http.HandlerFunc(echoUser))

	for path, want := range map[string]int{
		"/api/sync":       http.StatusOK,
		"/api/login":      http.StatusOK,
		"/api/user/email": http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		method := http.MethodPost
		if path == "/api/user/email" {
			method = http.MethodPut
		}
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.example"})(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter(&buf)

	h := RequestLogger(base)(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside handler")
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "inside handler")
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), rec.Header().Get("X-Request-ID"))
}
