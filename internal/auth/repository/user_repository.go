package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/mediarequest/backend/internal/auth/domain"
	"github.com/mediarequest/backend/internal/common/db"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserIDConflict     = errors.New("user id already exists")
)

// UserRepository is the credential store. Create is the single point that
// enforces email uniqueness and must be atomic.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.UserID) (domain.User, error)
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, display_name, contact_handle, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(user.ID),
		domain.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.DisplayName,
		user.ContactHandle,
		string(user.Role),
		user.CreatedAt,
	)
	return db.HandleExecError(err, ErrEmailAlreadyExists, "create user", start)
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, display_name, contact_handle, role, created_at
		 FROM users WHERE lower(email) = $1`,
		domain.NormalizeEmail(email),
	)

	user, err := scanUser(row)
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by email", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, display_name, contact_handle, role, created_at
		 FROM users WHERE id = $1`,
		string(id),
	)

	user, err := scanUser(row)
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user domain.User
		id   string
		role string
	)
	err := row.Scan(&id, &user.Email, &user.PasswordHash, &user.DisplayName, &user.ContactHandle, &role, &user.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	user.ID = domain.UserID(id)
	user.Role = domain.Role(role)
	return user, nil
}
