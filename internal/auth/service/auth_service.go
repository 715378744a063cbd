package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/auth/repository"
	"github.com/mediarequest/backend/internal/common/clock"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
	commonerrors "github.com/mediarequest/backend/internal/common/errors"
	"github.com/mediarequest/backend/internal/common/logger"
	"github.com/mediarequest/backend/internal/common/resilience"
)

const dummyPassword = "timing-equalization-placeholder"

type Issuer interface {
	IssueAccessToken(user domain.User) (string, error)
	IssueRefreshToken(userID domain.UserID) (string, error)
}

type RefreshVerifier interface {
	VerifyRefreshToken(token string) (domain.UserID, error)
}

type AuthServiceDeps struct {
	Repo        repository.UserRepository
	Hasher      commoncrypto.PasswordHasher
	Issuer      Issuer
	Verifier    RefreshVerifier
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Logger      *logger.Logger
}

type AuthServiceConfig struct {
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type AuthService struct {
	repo        repository.UserRepository
	hasher      commoncrypto.PasswordHasher
	issuer      Issuer
	verifier    RefreshVerifier
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
	validator   *CredentialValidator
	breaker     *resilience.CircuitBreaker

	// dummyHash is verified against when the email is unknown so that
	// response time does not reveal whether an account exists.
	dummyHash string
}

func NewAuthService(deps AuthServiceDeps, cfg AuthServiceConfig) (*AuthService, error) {
	dummyHash, err := deps.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dummy password hash: %w", err)
	}

	return &AuthService{
		repo:        deps.Repo,
		hasher:      deps.Hasher,
		issuer:      deps.Issuer,
		verifier:    deps.Verifier,
		idGenerator: deps.IDGenerator,
		clock:       deps.Clock,
		log:         deps.Logger,
		validator:   NewCredentialValidator(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.CircuitBreakerTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       "user_store",
			IgnoreErrors: []error{
				repository.ErrUserNotFound,
				repository.ErrEmailAlreadyExists,
			},
			Now:    deps.Clock.Now,
			Logger: deps.Logger,
		}),
		dummyHash: dummyHash,
	}, nil
}

type RegisterInput struct {
	Email         string
	Password      string
	DisplayName   string
	ContactHandle string
}

type LoginInput struct {
	Email    string
	Password string
}

type RegisterResult struct {
	AccessToken string
	User        domain.Profile
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.Profile
}

type RefreshResult struct {
	AccessToken string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	email := domain.NormalizeEmail(input.Email)
	displayName := strings.TrimSpace(input.DisplayName)
	contactHandle := strings.TrimSpace(input.ContactHandle)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "register_attempt",
	}).Info("register attempt")

	if err := s.validator.ValidateRegistration(email, input.Password, displayName, contactHandle); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		recordRegistration(outcomeFailure)
		return RegisterResult{}, err
	}

	if _, err := s.findByEmail(ctx, email); err == nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_email_exists",
		}).Warn("register failed: email already registered")
		recordRegistration(outcomeFailure)
		return RegisterResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		recordRegistration(outcomeError)
		return RegisterResult{}, s.storeFailure(ctx, "register_lookup_failed", email, err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		recordRegistration(outcomeError)
		return RegisterResult{}, hashError(err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		recordRegistration(outcomeError)
		return RegisterResult{}, commonerrors.ErrInternalError.WithCause(err)
	}

	user := domain.User{
		ID:            domain.UserID(id),
		Email:         email,
		PasswordHash:  hash,
		DisplayName:   displayName,
		ContactHandle: contactHandle,
		Role:          domain.RoleUser,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "register_email_conflict",
			}).Warn("register failed: concurrent registration won")
			recordRegistration(outcomeFailure)
			return RegisterResult{}, ErrDuplicateEmail
		}
		recordRegistration(outcomeError)
		return RegisterResult{}, s.storeFailure(ctx, "register_create_failed", email, err)
	}

	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "register_token_issue_failed",
		}).Errorf("register failed: token issue error: %v", err)
		recordRegistration(outcomeError)
		return RegisterResult{}, commonerrors.ErrInternalError.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "register_success",
	}).Info("register success")
	recordRegistration(outcomeSuccess)

	return RegisterResult{
		AccessToken: accessToken,
		User:        user.Profile(),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := domain.NormalizeEmail(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "login_attempt",
	}).Info("login attempt")

	if email == "" || input.Password == "" {
		s.log.WithFields(ctx, logger.Fields{
			"action": "login_missing_fields",
		}).Warn("login failed: missing fields")
		recordLogin(outcomeFailure)
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			recordLogin(outcomeError)
			return LoginResult{}, s.storeFailure(ctx, "login_fetch_failed", email, err)
		}
		// Spend the same hashing work as a real check.
		s.verifyPassword(input.Password, s.dummyHash)
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_user_not_found",
		}).Warn("login failed: invalid credentials")
		recordLogin(outcomeFailure)
		return LoginResult{}, ErrInvalidCredentials
	}

	if !s.verifyPassword(input.Password, user.PasswordHash) {
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid credentials")
		recordLogin(outcomeFailure)
		return LoginResult{}, ErrInvalidCredentials
	}

	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return LoginResult{}, s.tokenFailure(ctx, "login_token_issue_failed", user.ID, err, recordLogin)
	}
	refreshToken, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return LoginResult{}, s.tokenFailure(ctx, "login_token_issue_failed", user.ID, err, recordLogin)
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")
	recordLogin(outcomeSuccess)

	return LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Profile(),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated and stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	s.log.WithFields(ctx, logger.Fields{
		"action": "refresh_token_attempt",
	}).Info("refresh token attempt")

	userID, err := s.verifier.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "refresh_token_rejected",
		}).Warnf("refresh token rejected: %v", err)
		recordRefresh(outcomeFailure)
		return RefreshResult{}, ErrUnauthorized
	}

	user, err := s.findByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(userID),
				"action":  "refresh_token_user_not_found",
			}).Warn("refresh token rejected: account not found")
			recordRefresh(outcomeFailure)
			return RefreshResult{}, ErrUnauthorized
		}
		recordRefresh(outcomeError)
		return RefreshResult{}, s.storeFailure(ctx, "refresh_token_user_lookup_failed", string(userID), err)
	}

	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return RefreshResult{}, s.tokenFailure(ctx, "refresh_token_issue_failed", user.ID, err, recordRefresh)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "refresh_token_success",
	}).Info("refresh token success")
	recordRefresh(outcomeSuccess)

	return RefreshResult{AccessToken: accessToken}, nil
}

// EnsureAdmin creates an admin account for email unless a record with that
// email already exists. It reports whether a record was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, displayName string) (bool, error) {
	email = domain.NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	existing, err := s.findByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			s.log.WithFields(ctx, logger.Fields{
				"email":   email,
				"user_id": string(existing.ID),
				"action":  "ensure_admin_role_mismatch",
			}).Warn("admin bootstrap skipped: email belongs to a non-admin account")
		}
		return false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return false, s.storeFailure(ctx, "ensure_admin_lookup_failed", email, err)
	}

	if err := s.validator.ValidateRegistration(email, password, displayName, ""); err != nil {
		return false, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, hashError(err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return false, commonerrors.ErrInternalError.WithCause(err)
	}

	admin := domain.User{
		ID:           domain.UserID(id),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			return false, nil
		}
		return false, s.storeFailure(ctx, "ensure_admin_create_failed", email, err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(admin.ID),
		"action":  "ensure_admin_created",
	}).Info("admin account created")
	return true, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByEmail(ctx, email)
		return err
	})
	return user, err
}

func (s *AuthService) findByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	var user domain.User
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByID(ctx, id)
		return err
	})
	return user, err
}

func (s *AuthService) create(ctx context.Context, user domain.User) error {
	return s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, user)
	})
}

func (s *AuthService) hashPassword(password string) (string, error) {
	start := time.Now()
	defer observeHashDuration(start)
	return s.hasher.Hash(password)
}

func (s *AuthService) verifyPassword(password, hash string) bool {
	start := time.Now()
	defer observeHashDuration(start)
	return s.hasher.Verify(password, hash)
}

func (s *AuthService) storeFailure(ctx context.Context, action, subject string, err error) error {
	s.log.WithFields(ctx, logger.Fields{
		"subject": subject,
		"action":  action,
	}).Errorf("credential store failure: %v", err)
	return storeError(err)
}

func (s *AuthService) tokenFailure(ctx context.Context, action string, userID domain.UserID, err error, record func(string)) error {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(userID),
		"action":  action,
	}).Errorf("token issue failed: %v", err)
	record(outcomeError)
	return commonerrors.ErrInternalError.WithCause(err)
}
