package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/model"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListStudents(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
}

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var whitespaceRx = regexp.MustCompile(`\s+`)

// Service implements account operations.
type Service struct {
	repo       Repository
	issuer     string
	signingKey string
	accessTTL  time.Duration
}

// NewService creates an account service that issues tokens with the given
// signing parameters.
func NewService(repo Repository, issuer, signingKey string, accessTTL time.Duration) *Service {
	return &Service{repo: repo, issuer: issuer, signingKey: signingKey, accessTTL: accessTTL}
}

// Login checks credentials and issues a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", apperr.Internal("Login failed", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return "", apperr.Unauthorized("Invalid credentials")
	}
	token, err := auth.Issue(u.ID, u.Role, s.issuer, s.signingKey, s.accessTTL)
	if err != nil {
		return "", apperr.Internal("Login failed", err)
	}
	return token, nil
}

// Me returns the acting account's own profile.
func (s *Service) Me(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch user information", err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	u.PasswordHash = ""
	return u, nil
}

// List returns every account with attendance counts.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch users", err)
	}
	return users, nil
}

// Students returns all STUDENT accounts with attendance counts.
func (s *Service) Students(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch students", err)
	}
	return users, nil
}

// CreateInput is the admin account-creation payload.
type CreateInput struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role" binding:"required"`
	StudentID  string     `json:"studentId"`
	Department string     `json:"department"`
	Semester   string     `json:"semester"`
}

// Create registers a new account. The username is derived from the name and
// the initial password defaults to the student identifier.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	if !in.Role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}
	defaultPassword := in.StudentID
	if defaultPassword == "" {
		defaultPassword = "user"
	}
	hash, err := auth.HashPassword(defaultPassword)
	if err != nil {
		return nil, apperr.Internal("Failed to create user", err)
	}
	u := &model.User{
		Username:     whitespaceRx.ReplaceAllString(strings.ToLower(in.Name), ""),
		PasswordHash: hash,
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		StudentID:    in.StudentID,
		Department:   in.Department,
		Semester:     in.Semester,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("Failed to create user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// guard enforces the admin hierarchy: only SUPER_ADMIN may act on ADMIN
// accounts, and SUPER_ADMIN accounts are never editable by anyone else.
func guard(actor auth.Actor, target *model.User) error {
	switch target.Role {
	case model.RoleSuperAdmin:
		if actor.ID != target.ID {
			return apperr.Forbidden()
		}
	case model.RoleAdmin:
		if actor.Role != model.RoleSuperAdmin && actor.ID != target.ID {
			return apperr.Forbidden()
		}
	}
	return nil
}

// UpdateInput is the admin account-edit payload.
type UpdateInput struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role" binding:"required"`
	StudentID  string     `json:"studentId"`
	Department string     `json:"department"`
	Semester   string     `json:"semester"`
}

// Update edits an account's profile fields.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (*model.User, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to update user", err)
	}
	if target == nil {
		return nil, apperr.NotFound("User not found")
	}
	if err := guard(actor, target); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}
	target.Name = in.Name
	target.Email = in.Email
	target.Role = in.Role
	target.StudentID = in.StudentID
	target.Department = in.Department
	target.Semester = in.Semester
	if err := s.repo.Update(ctx, target); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("Failed to update user", err)
	}
	target.PasswordHash = ""
	return target, nil
}

// Delete removes an account, subject to the admin hierarchy.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to delete user", err)
	}
	if target == nil {
		return apperr.NotFound("User not found")
	}
	if err := guard(actor, target); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		return apperr.Internal("Failed to delete user", err)
	}
	return nil
}

// UpdateEmail changes the acting account's own email address.
func (s *Service) UpdateEmail(ctx context.Context, actorID, email string) (*model.User, error) {
	if email == "" || !emailRx.MatchString(email) {
		return nil, apperr.Validation("Invalid email format")
	}
	taken, err := s.repo.EmailTaken(ctx, email, actorID)
	if err != nil {
		return nil, apperr.Internal("Failed to update email", err)
	}
	if taken {
		return nil, apperr.Conflict("Email is already taken by another user")
	}
	if err := s.repo.UpdateEmail(ctx, actorID, email); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("Failed to update email", err)
	}
	return s.Me(ctx, actorID)
}

// UpdatePassword changes the acting account's own password after verifying
// the current one.
func (s *Service) UpdatePassword(ctx context.Context, actorID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("Current password and new password are required")
	}
	if len(next) < 6 {
		return apperr.Validation("New password must be at least 6 characters long")
	}
	u, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return apperr.Internal("Failed to update password", err)
	}
	if u == nil {
		return apperr.NotFound("User not found")
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return apperr.Validation("Current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return apperr.Internal("Failed to update password", err)
	}
	if err := s.repo.UpdatePassword(ctx, actorID, hash); err != nil {
		return apperr.Internal("Failed to update password", err)
	}
	return nil
}
