package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/common/clock"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrSigningKeyMissing = errors.New("token signing key is missing")
	ErrInvalidTokenTTL   = errors.New("token ttl must be positive")
)

// TokenConfig holds both signing secrets and lifetimes. It is built once at
// startup and read-only afterwards.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c TokenConfig) validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("%w: access", ErrSigningKeyMissing)
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("%w: refresh", ErrSigningKeyMissing)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	return nil
}

type accessTokenClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Type  string      `json:"typ"`
	jwt.RegisteredClaims
}

type refreshTokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	idGenerator   commoncrypto.IDGenerator
	clock         clock.Clock
}

func NewTokenIssuer(cfg TokenConfig, idGenerator commoncrypto.IDGenerator, clock clock.Clock) (*TokenIssuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		idGenerator:   idGenerator,
		clock:         clock,
	}, nil
}

func (ti *TokenIssuer) IssueAccessToken(user domain.User) (string, error) {
	registered, err := ti.registeredClaims(string(user.ID), ti.accessTTL)
	if err != nil {
		return "", err
	}

	claims := accessTokenClaims{
		Email:            user.Email,
		Role:             user.Role,
		Type:             tokenTypeAccess,
		RegisteredClaims: registered,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	incrementAccessTokensIssued()
	return token, nil
}

func (ti *TokenIssuer) IssueRefreshToken(userID domain.UserID) (string, error) {
	registered, err := ti.registeredClaims(string(userID), ti.refreshTTL)
	if err != nil {
		return "", err
	}

	claims := refreshTokenClaims{
		Type:             tokenTypeRefresh,
		RegisteredClaims: registered,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	incrementRefreshTokensIssued()
	return token, nil
}

func (ti *TokenIssuer) registeredClaims(subject string, ttl time.Duration) (jwt.RegisteredClaims, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return jwt.RegisteredClaims{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	now := ti.clock.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}, nil
}
