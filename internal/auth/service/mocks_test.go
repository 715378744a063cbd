package service_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/auth/repository"
	"github.com/mediarequest/backend/internal/auth/service"
	"github.com/mediarequest/backend/internal/common/clock"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
	"github.com/mediarequest/backend/internal/common/logger"
)

const (
	testAccessSecret  = "access-secret-key-must-be-at-least-32-bytes"
	testRefreshSecret = "refresh-secret-key-must-be-at-least-32-bytes"
)

type mockUserRepo struct {
	createFunc      func(ctx context.Context, user domain.User) error
	findByEmailFunc func(ctx context.Context, email string) (domain.User, error)
	findByIDFunc    func(ctx context.Context, id domain.UserID) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, repository.ErrUserNotFound
}

// mockHasher produces "hashed:<password>" digests.
type mockHasher struct {
	hashFunc    func(password string) (string, error)
	verifyFunc  func(password, hash string) bool
	verifyCalls atomic.Int32
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Verify(password, hash string) bool {
	m.verifyCalls.Add(1)
	if m.verifyFunc != nil {
		return m.verifyFunc(password, hash)
	}
	return strings.TrimPrefix(hash, "hashed:") == password && strings.HasPrefix(hash, "hashed:")
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
	next      atomic.Int64
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return fmt.Sprintf("user-%d", m.next.Add(1)), nil
}

type testEnv struct {
	svc      *service.AuthService
	repo     *mockUserRepo
	hasher   *mockHasher
	ids      *mockIDGenerator
	clock    *clock.MockClock
	issuer   *service.TokenIssuer
	verifier *service.TokenVerifier
}

func testTokenConfig() service.TokenConfig {
	return service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "auth-test", "DEBUG")
}

func setupAuthService(t *testing.T) *testEnv {
	t.Helper()
	return setupAuthServiceWithRepo(t, &mockUserRepo{})
}

func setupAuthServiceWithRepo(t *testing.T, repo repository.UserRepository) *testEnv {
	t.Helper()
	return setupAuthServiceWithHasher(t, repo, &mockHasher{})
}

func setupAuthServiceWithHasher(t *testing.T, repo repository.UserRepository, hasher commoncrypto.PasswordHasher) *testEnv {
	t.Helper()

	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ids := &mockIDGenerator{}

	issuer, err := service.NewTokenIssuer(testTokenConfig(), ids, mockClock)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	verifier, err := service.NewTokenVerifier(testTokenConfig(), mockClock)
	if err != nil {
		t.Fatalf("failed to create token verifier: %v", err)
	}

	svc, err := service.NewAuthService(service.AuthServiceDeps{
		Repo:        repo,
		Hasher:      hasher,
		Issuer:      issuer,
		Verifier:    verifier,
		IDGenerator: ids,
		Clock:       mockClock,
		Logger:      testLogger(),
	}, service.AuthServiceConfig{
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   time.Second,
		CircuitBreakerReset:     10 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}

	env := &testEnv{
		svc:      svc,
		ids:      ids,
		clock:    mockClock,
		issuer:   issuer,
		verifier: verifier,
	}
	if mock, ok := repo.(*mockUserRepo); ok {
		env.repo = mock
	}
	if mock, ok := hasher.(*mockHasher); ok {
		env.hasher = mock
	}
	return env
}
