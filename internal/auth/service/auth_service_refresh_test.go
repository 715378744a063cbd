package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/auth/repository"
	"github.com/mediarequest/backend/internal/auth/service"
)

func TestAuthService_Refresh_Success(t *testing.T) {
	env := setupAuthService(t)
	user := storedUser()
	env.repo.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		if id != user.ID {
			t.Errorf("expected id %s, got %s", user.ID, id)
		}
		return user, nil
	}

	refreshToken, err := env.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		t.Fatalf("failed to issue refresh token: %v", err)
	}

	result, err := env.svc.Refresh(context.Background(), refreshToken)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims, err := env.verifier.VerifyAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("expected access token to verify, got %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Refresh_TokenRemainsUsable(t *testing.T) {
	env := setupAuthService(t)
	env.repo.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		return storedUser(), nil
	}

	refreshToken, _ := env.issuer.IssueRefreshToken("user-123")
	for i := 0; i < 2; i++ {
		if _, err := env.svc.Refresh(context.Background(), refreshToken); err != nil {
			t.Fatalf("refresh %d: expected no error, got %v", i, err)
		}
	}
}

func TestAuthService_Refresh_Expired(t *testing.T) {
	env := setupAuthService(t)
	env.repo.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		t.Error("expected no lookup for expired token")
		return storedUser(), nil
	}

	refreshToken, _ := env.issuer.IssueRefreshToken("user-123")
	env.clock.Advance(7*24*time.Hour + time.Second)

	result, err := env.svc.Refresh(context.Background(), refreshToken)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if result.AccessToken != "" {
		t.Error("expected no access token")
	}
}

func TestAuthService_Refresh_InvalidTokens(t *testing.T) {
	env := setupAuthService(t)

	access, _ := env.issuer.IssueAccessToken(storedUser())
	refresh, _ := env.issuer.IssueRefreshToken("user-123")

	for name, token := range map[string]string{
		"empty":             "",
		"corrupted":         "corrupted.token.string",
		"access as refresh": access,
		"tampered":          tamperSignature(refresh),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := env.svc.Refresh(context.Background(), token); !errors.Is(err, service.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestAuthService_Refresh_UnknownAccount(t *testing.T) {
	env := setupAuthService(t)
	env.repo.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		return domain.User{}, repository.ErrUserNotFound
	}

	refreshToken, _ := env.issuer.IssueRefreshToken("deleted-user")
	if _, err := env.svc.Refresh(context.Background(), refreshToken); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Refresh_StoreFailure(t *testing.T) {
	env := setupAuthService(t)
	env.repo.findByIDFunc = func(ctx context.Context, id domain.UserID) (domain.User, error) {
		return domain.User{}, errors.New("i/o timeout")
	}

	refreshToken, _ := env.issuer.IssueRefreshToken("user-123")
	if _, err := env.svc.Refresh(context.Background(), refreshToken); !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthService_RegisterLoginRefresh(t *testing.T) {
	env := setupAuthServiceWithRepo(t, repository.NewMemoryUserRepository())
	ctx := context.Background()

	registered, err := env.svc.Register(ctx, service.RegisterInput{Email: "a@x.com", Password: "Secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Role != domain.RoleUser {
		t.Errorf("expected role user, got %s", registered.User.Role)
	}

	loggedIn, err := env.svc.Login(ctx, service.LoginInput{Email: "a@x.com", Password: "Secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := env.verifier.VerifyAccessToken(loggedIn.AccessToken)
	if err != nil {
		t.Fatalf("verify login token: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Errorf("expected subject %s, got %s", registered.User.ID, claims.UserID)
	}

	env.clock.Advance(2 * time.Hour)

	refreshed, err := env.svc.Refresh(ctx, loggedIn.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err = env.verifier.VerifyAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("verify refreshed token: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Errorf("expected subject %s, got %s", registered.User.ID, claims.UserID)
	}
}
