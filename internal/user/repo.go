package user

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
	"classtrack/internal/store"
)

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, name, COALESCE(email, ''), role,
	COALESCE(student_id, ''), COALESCE(department, ''), COALESCE(semester, ''), created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email, &u.Role,
		&u.StudentID, &u.Department, &u.Semester, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new account. Duplicate username or email maps to conflict.
func (r *PostgresRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash, name, email, role, student_id, department, semester)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''))
		RETURNING created_at
	`, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.Role, u.StudentID, u.Department, u.Semester)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("Username or email already taken")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID returns one account, or nil when missing.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByUsername returns one account with its password hash, or nil.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Role resolves an account id to its stored role. Satisfies auth.RoleSource.
func (r *PostgresRepository) Role(ctx context.Context, id string) (model.Role, error) {
	var role model.Role
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if err != nil {
		if store.IsNoRows(err) {
			return "", apperr.NotFound("User not found")
		}
		return "", fmt.Errorf("get user role: %w", err)
	}
	return role, nil
}

func (r *PostgresRepository) list(ctx context.Context, where string, args ...any) ([]model.User, error) {
	query := `
		SELECT u.id, u.username, u.name, COALESCE(u.email, ''), u.role,
			COALESCE(u.student_id, ''), COALESCE(u.department, ''), COALESCE(u.semester, ''),
			u.created_at, COUNT(a.id)
		FROM users u
		LEFT JOIN subject_attendance a ON a.student_id = u.id
	` + where + `
		GROUP BY u.id
		ORDER BY u.name
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Role,
			&u.StudentID, &u.Department, &u.Semester, &u.CreatedAt, &u.AttendanceCount); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// List returns all accounts with their attendance record counts. Password
// hashes are never selected.
func (r *PostgresRepository) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "")
}

// ListStudents returns all STUDENT accounts with attendance counts.
func (r *PostgresRepository) ListStudents(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "WHERE u.role = $1", model.RoleStudent)
}

// Update rewrites an account's editable fields.
func (r *PostgresRepository) Update(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = NULLIF($3, ''), role = $4,
			student_id = NULLIF($5, ''), department = NULLIF($6, ''), semester = NULLIF($7, '')
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.Role, u.StudentID, u.Department, u.Semester)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("Email is already taken by another user")
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// UpdateEmail changes one account's email address.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET email = $2 WHERE id = $1`, id, email)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.Conflict("Email is already taken by another user")
		}
		return fmt.Errorf("update email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// UpdatePassword replaces one account's password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// Delete removes an account.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// EmailTaken reports whether another account already uses email.
func (r *PostgresRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}
