package users

import (
	"encoding/json"
	"time"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account. PasswordHash is a bcrypt hash; ResetCodeHash holds the
// hashed one-time reset code while one is outstanding.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Username       string
	Email          string
	PasswordHash   string
	Role           string
	Location       json.RawMessage
	GoogleSub      string
	PictureURL     string
	ResetCodeHash  string
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
}

// LoginLog records one login attempt.
type LoginLog struct {
	ID        string
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	CreatedAt time.Time
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}
