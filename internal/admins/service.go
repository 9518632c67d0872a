package admins

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"cvpro-backend/internal/resumes"
	"cvpro-backend/internal/shared/auth"
	"cvpro-backend/internal/shared/telemetry"
	"cvpro-backend/internal/users"
)

var (
	// ErrSignupDisabled is returned when no admin signup key is configured.
	ErrSignupDisabled = errors.New("admin signup disabled")
	// ErrBadSignupKey is returned when the caller's key does not match.
	ErrBadSignupKey = errors.New("invalid admin signup key")
	// ErrNotAdmin is returned when a non-admin account tries the admin login.
	ErrNotAdmin = errors.New("not an admin")
)

// UserSummary is a regular user with their resume count.
type UserSummary struct {
	users.User
	TotalResumes int
}

// Service implements admin operations on top of the user and resume services.
type Service struct {
	Users     *users.Service
	Resumes   *resumes.Service
	SignupKey string
}

func NewService(usersSvc *users.Service, resumesSvc *resumes.Service, signupKey string) *Service {
	return &Service{Users: usersSvc, Resumes: resumesSvc, SignupKey: signupKey}
}

// Register creates an admin account when key matches the configured signup key.
func (s *Service) Register(ctx context.Context, key string, in users.RegisterInput) (users.User, error) {
	if s.SignupKey == "" {
		return users.User{}, ErrSignupDisabled
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.SignupKey)) != 1 {
		return users.User{}, ErrBadSignupKey
	}
	in.Role = users.RoleAdmin
	return s.Users.Register(ctx, in)
}

// Login authenticates and then requires the admin role.
func (s *Service) Login(ctx context.Context, email, password string, client users.ClientInfo) (auth.TokenPair, users.User, error) {
	u, err := s.Users.Authenticate(ctx, email, password, client)
	if err != nil {
		return auth.TokenPair{}, users.User{}, err
	}
	if u.Role != users.RoleAdmin {
		return auth.TokenPair{}, users.User{}, ErrNotAdmin
	}
	pair, err := s.Users.IssueTokens(u)
	if err != nil {
		return auth.TokenPair{}, users.User{}, err
	}
	return pair, u, nil
}

// ListUsers returns all non-admin users with their resume counts.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	list, err := s.Users.ListByRole(ctx, users.RoleUser)
	if err != nil {
		return nil, err
	}
	counts, err := s.Resumes.CountByUser(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(list))
	for _, u := range list {
		out = append(out, UserSummary{User: u, TotalResumes: counts[u.ID]})
	}
	return out, nil
}

func (s *Service) ListResumes(ctx context.Context) ([]resumes.Resume, error) {
	return s.Resumes.ListAll(ctx)
}

func (s *Service) ListLoginLogs(ctx context.Context) ([]users.LoginLog, error) {
	return s.Users.ListLoginLogs(ctx)
}

// DeleteUser removes the user, their resumes and the resumes' images.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return err
	}
	n, err := s.Resumes.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete resumes: %w", err)
	}
	if err := s.Users.Delete(ctx, userID); err != nil {
		return err
	}
	telemetry.Info("admins.user.deleted", map[string]any{"user_id": userID, "resumes": n})
	return nil
}
