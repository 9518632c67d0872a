package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Service encapsulates health-related checks.
type Service struct {
	db Pinger
}

// NewService constructs a new health service. A nil db reports the
// in-memory store.
func NewService(db Pinger) *Service {
	return &Service{db: db}
}

// Check pings the database when one is configured.
func (s *Service) Check(ctx context.Context) Status {
	if s == nil || s.db == nil {
		return Status{OK: true, Database: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return Status{OK: false, Database: "down"}
	}
	return Status{OK: true, Database: "up"}
}
