package resumes

import "errors"

var (
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidJSON  = errors.New("invalid JSON format in resumeData")
	ErrNoFields     = errors.New("no valid fields provided to update")
	ErrInvalidInput = errors.New("invalid input")
)
