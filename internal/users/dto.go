package users

import (
	"encoding/json"
	"time"
)

// UserResponse is the outward-facing representation of a user. Secrets are
// never included.
type UserResponse struct {
	ID         string          `json:"_id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Role       string          `json:"role"`
	Location   json.RawMessage `json:"location"`
	PictureURL string          `json:"picture_url,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToResponse renders u without credentials.
func ToResponse(u User) UserResponse {
	loc := u.Location
	if len(loc) == 0 {
		loc = json.RawMessage("{}")
	}
	return UserResponse{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Location:   loc,
		PictureURL: u.PictureURL,
		CreatedAt:  u.CreatedAt,
	}
}

// LoginLogResponse is the admin view of a login attempt.
type LoginLogResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Email           string    `json:"email"`
	Timestamp       time.Time `json:"timestamp"`
	IPAddress       string    `json:"ip_address"`
	UserAgent       string    `json:"user_agent"`
	LoginSuccessful bool      `json:"login_successful"`
}

// ToLoginLogResponse renders a login log entry.
func ToLoginLogResponse(l LoginLog) LoginLogResponse {
	return LoginLogResponse{
		ID:              l.ID,
		UserID:          l.UserID,
		Email:           l.Email,
		Timestamp:       l.CreatedAt,
		IPAddress:       l.IPAddress,
		UserAgent:       l.UserAgent,
		LoginSuccessful: l.Success,
	}
}
