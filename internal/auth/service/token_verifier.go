package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/common/clock"
)

var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenMalformed        = errors.New("token is malformed")

	errUnexpectedSigningMethod = errors.New("unexpected signing method")
)

// AccessClaims is the verified identity carried by an access token.
type AccessClaims struct {
	UserID    domain.UserID
	Email     string
	Role      domain.Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenVerifier struct {
	accessSecret  []byte
	refreshSecret []byte
	parser        *jwt.Parser
}

func NewTokenVerifier(cfg TokenConfig, clock clock.Clock) (*TokenVerifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TokenVerifier{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		parser: jwt.NewParser(
			jwt.WithTimeFunc(clock.Now),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (tv *TokenVerifier) VerifyRefreshToken(tokenString string) (domain.UserID, error) {
	var claims refreshTokenClaims
	if err := tv.parse(tokenString, tv.refreshSecret, &claims); err != nil {
		observeValidation(tokenTypeRefresh, err)
		return "", err
	}
	if claims.Type != tokenTypeRefresh || claims.Subject == "" {
		observeValidation(tokenTypeRefresh, ErrTokenMalformed)
		return "", ErrTokenMalformed
	}

	observeValidation(tokenTypeRefresh, nil)
	return domain.UserID(claims.Subject), nil
}

func (tv *TokenVerifier) VerifyAccessToken(tokenString string) (AccessClaims, error) {
	var claims accessTokenClaims
	if err := tv.parse(tokenString, tv.accessSecret, &claims); err != nil {
		observeValidation(tokenTypeAccess, err)
		return AccessClaims{}, err
	}
	if claims.Type != tokenTypeAccess || claims.Subject == "" || !claims.Role.Valid() {
		observeValidation(tokenTypeAccess, ErrTokenMalformed)
		return AccessClaims{}, ErrTokenMalformed
	}

	observeValidation(tokenTypeAccess, nil)
	result := AccessClaims{
		UserID:    domain.UserID(claims.Subject),
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	return result, nil
}

func (tv *TokenVerifier) parse(tokenString string, secret []byte, claims jwt.Claims) error {
	if tokenString == "" {
		return ErrTokenMalformed
	}

	_, err := tv.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedSigningMethod
		}
		return secret, nil
	})
	return classifyTokenError(err)
}

func classifyTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errUnexpectedSigningMethod):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenInvalidSignature
	default:
		return ErrTokenMalformed
	}
}
