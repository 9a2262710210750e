package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, username, first_name, last_name, email, COALESCE(password_hash, ''), role, permissions, is_active`

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// UserInput carries the writable user fields. An empty Password leaves the hash unset (create) or unchanged (update).
type UserInput struct {
	Username    string
	FirstName   string
	LastName    string
	Email       string
	Password    string
	Role        string
	Permissions []string
	IsActive    bool
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.Role, pq.Array(&u.Permissions), &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func hashPassword(password string) (sql.NullString, error) {
	if password == "" {
		return sql.NullString{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(h), Valid: true}, nil
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, in UserInput) (*models.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	perms := in.Permissions
	if perms == nil {
		perms = []string{}
	}
	query := `
		INSERT INTO users (username, first_name, last_name, email, password_hash, role, permissions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	return scanUser(r.DB.QueryRowContext(ctx, query,
		in.Username, in.FirstName, in.LastName, in.Email, hash, in.Role, pq.Array(perms), in.IsActive))
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// ==========================
// Get By Username
// ==========================
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// ==========================
// Update User
// ==========================
func (r *UserRepo) Update(ctx context.Context, id int, in UserInput) (*models.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	perms := in.Permissions
	if perms == nil {
		perms = []string{}
	}
	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, email = $4,
		    password_hash = COALESCE($5, password_hash), role = $6, permissions = $7, is_active = $8
		WHERE id = $9
		RETURNING ` + userColumns

	return scanUser(r.DB.QueryRowContext(ctx, query,
		in.Username, in.FirstName, in.LastName, in.Email, hash, in.Role, pq.Array(perms), in.IsActive, id))
}

// ==========================
// Delete User
// ==========================
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ==========================
// List / Count Users
// ==========================
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
