package users

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cvpro-backend/internal/shared/auth"
	"cvpro-backend/internal/shared/telemetry"
	"cvpro-backend/internal/shared/util"
)

const (
	resetCodeTTL     = 5 * time.Minute
	resetCodeDigits  = 6
	usernameAttempts = 10
)

// ContactRecipient receives contact-form notifications.
var ContactRecipient = "support@cvpro.local"

var (
	namePattern    = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

// RegisterInput carries a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Location  json.RawMessage
	Role      string
}

// ClientInfo identifies the caller of a login attempt.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ContactInput carries a contact-form message.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// GoogleProfile is the identity returned by Google after a code exchange.
type GoogleProfile struct {
	Sub        string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}

// Service contains account business logic.
type Service struct {
	Repo   Repo
	Tokens *auth.Issuer
	Mailer Mailer

	now    func() time.Time
	digits func(n int) (string, error)
}

// NewService constructs a Service. A nil mailer logs messages.
func NewService(repo Repo, tokens *auth.Issuer, mailer Mailer) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{
		Repo:   repo,
		Tokens: tokens,
		Mailer: mailer,
		now:    func() time.Time { return time.Now().UTC() },
		digits: randomDigits,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// CheckPassword enforces the password policy.
func CheckPassword(password string) error {
	switch {
	case len(password) < 8:
		return invalid("password", "Password must be at least 8 characters long.")
	case !upperPattern.MatchString(password):
		return invalid("password", "Password must contain at least one uppercase letter.")
	case !digitPattern.MatchString(password):
		return invalid("password", "Password must contain at least one digit.")
	case !specialPattern.MatchString(password):
		return invalid("password", "Password must contain at least one special character (@$!%*?&).")
	}
	return nil
}

// Register validates and stores a new account and returns it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	email := normalizeEmail(in.Email)

	switch {
	case in.FirstName == "" || !namePattern.MatchString(in.FirstName):
		return User{}, invalid("first_name", "First name should only contain letters and spaces.")
	case in.LastName == "" || !namePattern.MatchString(in.LastName):
		return User{}, invalid("last_name", "Last name should only contain letters and spaces.")
	case !validEmail(email):
		return User{}, invalid("email", "Enter a valid email address.")
	}
	if err := CheckPassword(in.Password); err != nil {
		return User{}, err
	}
	if len(in.Location) > 0 && !json.Valid(in.Location) {
		return User{}, invalid("location", "Location must be valid JSON.")
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	u := User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Location:     in.Location,
		CreatedAt:    s.now(),
	}
	if err := s.createWithUsername(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// createWithUsername assigns "<first><last><4 digits>" and retries on
// collisions.
func (s *Service) createWithUsername(ctx context.Context, u *User) error {
	base := strings.ToLower(strings.ReplaceAll(u.FirstName+u.LastName, " ", ""))
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		n := 4
		if attempt == usernameAttempts-1 {
			n = 5
		}
		suffix, err := s.digits(n)
		if err != nil {
			return err
		}
		u.Username = base + suffix
		exists, err := s.Repo.UsernameExists(ctx, u.Username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		err = s.Repo.Create(ctx, *u)
		if errors.Is(err, ErrUsernameTaken) {
			continue
		}
		return err
	}
	return ErrUsernameTaken
}

// Authenticate checks credentials and records the attempt in the login log.
func (s *Service) Authenticate(ctx context.Context, email, password string, client ClientInfo) (User, error) {
	email = normalizeEmail(email)
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	ok := err == nil && u.PasswordHash != "" &&
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil

	s.recordLogin(ctx, u.ID, email, ok, client)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (auth.TokenPair, User, error) {
	u, err := s.Authenticate(ctx, email, password, client)
	if err != nil {
		return auth.TokenPair{}, User{}, err
	}
	pair, err := s.IssueTokens(u)
	if err != nil {
		return auth.TokenPair{}, User{}, err
	}
	return pair, u, nil
}

// IssueTokens signs a token pair for u.
func (s *Service) IssueTokens(u User) (auth.TokenPair, error) {
	return s.Tokens.IssuePair(identityOf(u))
}

func identityOf(u User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role}
}

func (s *Service) recordLogin(ctx context.Context, userID, email string, success bool, client ClientInfo) {
	entry := LoginLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		CreatedAt: s.now(),
	}
	if err := s.Repo.AddLoginLog(ctx, entry); err != nil {
		telemetry.Warn("users.login_log.write_failed", map[string]any{"email": email, "err": err.Error()})
	}
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(refresh string) (string, error) {
	claims, err := s.Tokens.Verify(refresh, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.Tokens.IssueAccess(auth.Identity{
		UserID:   claims.UserID(),
		Email:    claims.Email,
		Username: claims.Username,
		Role:     claims.Role,
	})
}

// VerifyToken checks any token issued by this service.
func (s *Service) VerifyToken(token string) error {
	_, err := s.Tokens.Verify(token, "")
	return err
}

// ForgotPassword stores a hashed 6-digit code valid for five minutes and
// mails the plain code to the user.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	code, err := s.digits(resetCodeDigits)
	if err != nil {
		return err
	}
	if err := s.Repo.SetResetCode(ctx, u.ID, util.HashToken(code), s.now().Add(resetCodeTTL)); err != nil {
		return err
	}
	err = s.Mailer.Send(ctx, Mail{
		To:      []string{u.Email},
		Subject: "Password Reset Request",
		Body:    fmt.Sprintf("Your password reset code is: %s\nThis code is valid for 5 minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return nil
}

// checkResetCode returns the user when code matches an unexpired reset
// code. An expired code is cleared.
func (s *Service) checkResetCode(ctx context.Context, email, code string) (User, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, err
	}
	if u.ResetCodeHash == "" || u.ResetExpiresAt == nil {
		return User{}, ErrNoResetCode
	}
	got := util.HashToken(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(got), []byte(u.ResetCodeHash)) != 1 {
		return User{}, ErrInvalidCode
	}
	if s.now().After(*u.ResetExpiresAt) {
		if err := s.Repo.ClearResetCode(ctx, u.ID); err != nil {
			telemetry.Warn("users.reset.clear_failed", map[string]any{"user_id": u.ID, "err": err.Error()})
		}
		return User{}, ErrCodeExpired
	}
	return u, nil
}

// VerifyResetCode checks a reset code without consuming it.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.checkResetCode(ctx, email, code)
	return err
}

// ResetPassword sets a new password when the reset code is valid. The code
// is consumed.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := CheckPassword(newPassword); err != nil {
		return err
	}
	u, err := s.checkResetCode(ctx, email, code)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Repo.UpdatePassword(ctx, u.ID, string(hash))
}

// Contact stores a contact-form message and forwards it to the mailer.
// The message stays stored when delivery fails.
func (s *Service) Contact(ctx context.Context, in ContactInput) (ContactMessage, error) {
	m := ContactMessage{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     normalizeEmail(in.Email),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: s.now(),
	}
	switch {
	case m.Name == "":
		return ContactMessage{}, invalid("name", "Name cannot be empty.")
	case !namePattern.MatchString(m.Name):
		return ContactMessage{}, invalid("name", "Name should only contain letters and spaces.")
	case !validEmail(m.Email):
		return ContactMessage{}, invalid("email", "Enter a valid email address.")
	case m.Subject == "":
		return ContactMessage{}, invalid("subject", "Subject cannot be empty.")
	case m.Message == "":
		return ContactMessage{}, invalid("message", "Message cannot be empty.")
	}

	if err := s.Repo.AddContactMessage(ctx, m); err != nil {
		return ContactMessage{}, err
	}
	body := fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\nMessage: %s\n", m.Name, m.Email, m.Subject, m.Message)
	if err := s.Mailer.Send(ctx, Mail{
		To:      []string{ContactRecipient},
		Subject: "New Contact Us Message : " + m.Subject,
		Body:    body,
	}); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMailFailed, err)
	}
	return m, nil
}

// LoginGoogle finds or creates the account for a Google profile, records
// the login and issues tokens.
func (s *Service) LoginGoogle(ctx context.Context, p GoogleProfile, client ClientInfo) (auth.TokenPair, User, error) {
	email := normalizeEmail(p.Email)
	if p.Sub == "" || email == "" {
		return auth.TokenPair{}, User{}, invalid("email", "Email not provided by Google")
	}

	u, err := s.Repo.GetByGoogleSub(ctx, p.Sub)
	if errors.Is(err, ErrNotFound) {
		u, err = s.Repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if linkErr := s.Repo.LinkGoogle(ctx, u.ID, p.Sub, p.Picture); linkErr != nil {
				return auth.TokenPair{}, User{}, linkErr
			}
			u.GoogleSub = p.Sub
			if p.Picture != "" {
				u.PictureURL = p.Picture
			}
		case errors.Is(err, ErrNotFound):
			u = User{
				ID:         uuid.NewString(),
				FirstName:  p.GivenName,
				LastName:   p.FamilyName,
				Email:      email,
				Role:       RoleUser,
				GoogleSub:  p.Sub,
				PictureURL: p.Picture,
				CreatedAt:  s.now(),
			}
			if err = s.createWithUsername(ctx, &u); err != nil {
				return auth.TokenPair{}, User{}, err
			}
		}
	}
	if err != nil {
		return auth.TokenPair{}, User{}, err
	}

	s.recordLogin(ctx, u.ID, email, true, client)
	pair, err := s.IssueTokens(u)
	if err != nil {
		return auth.TokenPair{}, User{}, err
	}
	return pair, u, nil
}

// GetByID returns one account.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// ListByRole lists accounts with role.
func (s *Service) ListByRole(ctx context.Context, role string) ([]User, error) {
	return s.Repo.ListByRole(ctx, role)
}

// ListLoginLogs lists login attempts newest first.
func (s *Service) ListLoginLogs(ctx context.Context) ([]LoginLog, error) {
	return s.Repo.ListLoginLogs(ctx)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("random digits: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
