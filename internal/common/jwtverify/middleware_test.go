package jwtverify

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediarequest/backend/internal/common/logger"
)

func TestMiddleware(t *testing.T) {
	verifier := VerifierFunc(func(token string) (Claims, error) {
		if token != "good-token" {
			return Claims{}, errors.New("token expired")
		}
		return Claims{UserID: "user-1", Email: "a@x.com", Role: "user"}, nil
	})
	log := logger.NewWithWriter(io.Discard, "jwt-test", "ERROR")

	var seen Claims
	handler := Middleware(verifier, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good-token", http.StatusOK},
		{"lowercase scheme", "bearer good-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer expired", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = Claims{}
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "user-1", seen.UserID)
			} else {
				assert.JSONEq(t, `{"code":"UNAUTHORIZED","message":"unauthorized"}`, rec.Body.String())
			}
		})
	}
}
