package resumes

import (
	"encoding/json"
	"time"
)

// View is the outward-facing representation of a resume.
type View struct {
	ID            string          `json:"_id"`
	UserID        string          `json:"user_id"`
	Title         string          `json:"title"`
	Email         string          `json:"email"`
	ResumeDetails json.RawMessage `json:"resume_details"`
	ImageID       *string         `json:"image_id"`
	ImageURL      string          `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToView renders a resume; image_url mirrors the image id when set.
func ToView(r Resume) View {
	v := View{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Email:         r.Email,
		ResumeDetails: r.Details,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(v.ResumeDetails) == 0 {
		v.ResumeDetails = json.RawMessage("{}")
	}
	if r.ImageID != "" {
		id := r.ImageID
		v.ImageID = &id
		v.ImageURL = id
	}
	return v
}

// ToViews renders a list, never returning nil.
func ToViews(list []Resume) []View {
	out := make([]View, 0, len(list))
	for _, r := range list {
		out = append(out, ToView(r))
	}
	return out
}
