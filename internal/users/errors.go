package users

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoResetCode        = errors.New("no reset code outstanding")
	ErrInvalidCode        = errors.New("invalid reset code")
	ErrCodeExpired        = errors.New("reset code expired")
	ErrMailFailed         = errors.New("mail delivery failed")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
