package service

import (
	"errors"
	"time"

	"github.com/mediarequest/backend/internal/observability/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func observeValidation(tokenType string, err error) {
	result := "valid"
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		result = "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		result = "invalid_signature"
	default:
		result = "malformed"
	}
	metrics.JWTValidationsTotal.WithLabelValues(tokenType, result).Inc()
}

func observeHashDuration(start time.Time) {
	metrics.PasswordHashDurationSeconds.Observe(time.Since(start).Seconds())
}

func recordRegistration(outcome string) {
	metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

func recordLogin(outcome string) {
	metrics.LoginsTotal.WithLabelValues(outcome).Inc()
}

func recordRefresh(outcome string) {
	metrics.RefreshesTotal.WithLabelValues(outcome).Inc()
}
