package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinica-estetica/turnos/libs/db"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is a clinic staff account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id::text, email, password_hash, role, activo, created_at, last_login_at`

// Create stores user; emails are compared case-insensitively.
func (r *UserRepository) Create(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff_users (id, email, password_hash, role, activo)
		VALUES ($1::uuid, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.ID, NormalizeEmail(user.Email), user.PasswordHash, user.Role, user.Active)
	out, err := scanUser(row)
	if db.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return out, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM staff_users WHERE email = $1`, NormalizeEmail(email))
	return notFound(scanUser(row))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM staff_users WHERE id::text = $1`, id)
	return notFound(scanUser(row))
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE staff_users SET last_login_at = now() WHERE id::text = $1`, id)
	return err
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

func notFound(u User, err error) (User, error) {
	if db.IsNotFound(err) {
		return User{}, ErrUserNotFound
	}
	return u, err
}
