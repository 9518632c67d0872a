package ingest

import "net/http"

// Kind classifies an ingestion failure.
type Kind string

const (
	KindBadRequest Kind = "bad_request"
	KindExtraction Kind = "extraction_failed"
	KindAIService  Kind = "ai_service_failed"
	KindParse      Kind = "parse_failed"
	KindTimeout    Kind = "ai_timeout"
)

// Messages returned for rejected uploads.
const (
	MsgNoFile            = "No file uploaded"
	MsgUnsupportedFormat = "Unsupported file format"
	MsgAITimeout         = "AI service timed out"
)

// Error is a terminal ingestion failure. Message is safe to return to the
// caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
