package resumes

import (
	"encoding/json"
	"time"
)

// Resume is a stored resume document. Details is opaque JSON, normally a
// structured resume edited by the user.
type Resume struct {
	ID        string
	UserID    string
	Title     string
	Email     string
	Details   json.RawMessage
	ImageID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch lists the fields an update replaces. Nil fields are left alone.
type Patch struct {
	Title   *string
	UserID  *string
	Details json.RawMessage
	ImageID *string
}

func (p Patch) empty() bool {
	return p.Title == nil && p.UserID == nil && p.Details == nil && p.ImageID == nil
}

func (p Patch) apply(r *Resume) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.UserID != nil {
		r.UserID = *p.UserID
	}
	if p.Details != nil {
		r.Details = p.Details
	}
	if p.ImageID != nil {
		r.ImageID = *p.ImageID
	}
}
