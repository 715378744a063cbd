package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authhttp "github.com/mediarequest/backend/internal/auth/http"
	"github.com/mediarequest/backend/internal/auth/repository"
	"github.com/mediarequest/backend/internal/auth/service"
	"github.com/mediarequest/backend/internal/common/clock"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
	commonhttp "github.com/mediarequest/backend/internal/common/http"
	"github.com/mediarequest/backend/internal/common/logger"
)

type testServer struct {
	handler  http.Handler
	verifier *service.TokenVerifier
	clock    *clock.MockClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.NewWithWriter(io.Discard, "auth-test", "ERROR")
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ids := commoncrypto.NewUUIDGenerator()

	hasher, err := commoncrypto.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	tokenCfg := service.TokenConfig{
		AccessSecret:  "access-secret-key-must-be-at-least-32-bytes",
		RefreshSecret: "refresh-secret-key-must-be-at-least-32-bytes",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	issuer, err := service.NewTokenIssuer(tokenCfg, ids, mockClock)
	require.NoError(t, err)
	verifier, err := service.NewTokenVerifier(tokenCfg, mockClock)
	require.NoError(t, err)

	svc, err := service.NewAuthService(service.AuthServiceDeps{
		Repo:        repository.NewMemoryUserRepository(),
		Hasher:      hasher,
		Issuer:      issuer,
		Verifier:    verifier,
		IDGenerator: ids,
		Clock:       mockClock,
		Logger:      log,
	}, service.AuthServiceConfig{
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   time.Second,
		CircuitBreakerReset:     10 * time.Second,
	})
	require.NoError(t, err)

	handler := authhttp.NewHandler(svc, verifier, authhttp.HandlerConfig{RequestTimeout: 5 * time.Second}, log)
	return &testServer{
		handler:  commonhttp.BuildBaseHandler("auth", log, handler, nil),
		verifier: verifier,
		clock:    mockClock,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode(t, rec)
	assert.NotEmpty(t, registered["accessToken"])
	assert.NotContains(t, registered, "refreshToken")
	user := registered["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "passwordHash")
	userID := user["id"].(string)

	rec = s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loggedIn := decode(t, rec)
	assert.NotEmpty(t, loggedIn["accessToken"])
	refreshToken, _ := loggedIn["refreshToken"].(string)
	require.NotEmpty(t, refreshToken)

	rec = s.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+refreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode(t, rec)
	accessToken, _ := refreshed["accessToken"].(string)
	claims, err := s.verifier.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, string(claims.UserID))

	rec = s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, rec)["code"])

	rec = s.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"corrupted.token.string"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])
}

func TestAuthFlow_LoginFailuresIdentical(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Secret123"}`).Code)

	wrongPassword := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong-password"}`)
	unknownEmail := s.do(t, http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestAuthFlow_DuplicateRegistration(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"a@x.com","password":"Secret123","displayName":"Alice","contactHandle":"@alice"}`

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/auth/register", body).Code)

	rec := s.do(t, http.MethodPost, "/auth/register", `{"email":"A@X.COM","password":"Other1234"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decode(t, rec)["code"])
}

func TestAuthFlow_RegisterInvalidInput(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{
		`{"password":"Secret123"}`,
		`{"email":"a@x.com"}`,
		`{"email":"not-an-email","password":"Secret123"}`,
		`{"email":"a@x.com","password":"short"}`,
	} {
		rec := s.do(t, http.MethodPost, "/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "INVALID_INPUT", decode(t, rec)["code"], body)
	}
}

func TestAuthFlow_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/auth/register", "/auth/login", "/auth/refresh"} {
		rec := s.do(t, http.MethodPost, path, `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "INVALID_JSON", decode(t, rec)["code"], path)
	}
}

func TestAuthFlow_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/auth/register", "/auth/login", "/auth/refresh"} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			rec := s.do(t, method, path, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method+" "+path)
			assert.Equal(t, "METHOD_NOT_ALLOWED", decode(t, rec)["code"], method+" "+path)
		}
	}
}

func TestAuthFlow_ExpiredRefreshToken(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Secret123"}`).Code)

	rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshToken := decode(t, rec)["refreshToken"].(string)

	s.clock.Advance(8 * 24 * time.Hour)

	rec = s.do(t, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+refreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, decode(t, rec), "accessToken")
}

func TestAuthFlow_Me(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	accessToken := decode(t, rec)["accessToken"].(string)

	rec = s.do(t, http.MethodGet, "/auth/me", "", "Authorization", "Bearer "+accessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode(t, rec)
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, "user", me["role"])

	rec = s.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.clock.Advance(2 * time.Hour)
	rec = s.do(t, http.MethodGet, "/auth/me", "", "Authorization", "Bearer "+accessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_HealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}

func TestAuthFlow_TraceIDOnErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "X-Trace-ID", "trace-abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "trace-abc", rec.Header().Get("X-Trace-ID"))

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&envelope))
	assert.Len(t, envelope, 2)
}
