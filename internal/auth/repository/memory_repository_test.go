package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mediarequest/backend/internal/auth/domain"
)

func newTestUser(id, email string) domain.User {
	return domain.User{
		ID:           domain.UserID(id),
		Email:        email,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryUserRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newTestUser("user-1", "A@X.com")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	byEmail, err := repo.FindByEmail(ctx, "a@x.COM")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Errorf("expected id user-1, got %s", byEmail.ID)
	}
	if byEmail.Email != "a@x.com" {
		t.Errorf("expected normalized email, got %s", byEmail.Email)
	}

	byID, err := repo.FindByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if byID.Email != "a@x.com" {
		t.Errorf("expected email a@x.com, got %s", byID.Email)
	}
}

func TestMemoryUserRepository_NotFound(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	if _, err := repo.FindByEmail(ctx, "nobody@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryUserRepository_DuplicateEmailCaseInsensitive(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newTestUser("user-1", "a@x.com")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err := repo.Create(ctx, newTestUser("user-2", " A@X.COM "))
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 user, got %d", repo.count())
	}
}

func TestMemoryUserRepository_DuplicateID(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_ = repo.Create(ctx, newTestUser("user-1", "a@x.com"))
	err := repo.Create(ctx, newTestUser("user-1", "b@x.com"))
	if !errors.Is(err, ErrUserIDConflict) {
		t.Errorf("expected ErrUserIDConflict, got %v", err)
	}
}

func TestMemoryUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, newTestUser(fmt.Sprintf("user-%d", i), "race@x.com"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrEmailAlreadyExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if conflicts != workers-1 {
		t.Errorf("expected %d conflicts, got %d", workers-1, conflicts)
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 stored user, got %d", repo.count())
	}
}

func TestMemoryUserRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Create(ctx, newTestUser("user-1", "a@x.com")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
