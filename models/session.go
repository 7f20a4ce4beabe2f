package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the UI-visible lifecycle state of a deal session.
type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusLoading SessionStatus = "loading"
	StatusSuccess SessionStatus = "success"
	StatusError   SessionStatus = "error"
)

// Citation is one grounded source link attached to a model answer.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
	// Kind is "web" or "maps", matching the grounding chunk variant.
	Kind string `json:"kind"`
}

// SessionSnapshot is the renderable view of a session at one moment.
// At most one of ErrorMessage / the narrative fields is populated,
// depending on Status.
type SessionSnapshot struct {
	ID           string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	// Location mirrors the live form field; it is mutated by
	// geolocation fixes independently of the search lifecycle.
	Location string           `json:"location"`
	Features OptionalFeatures `json:"features"`

	NarrativeMarkdown string     `json:"narrative_markdown,omitempty"`
	NarrativeHTML     string     `json:"narrative_html,omitempty"`
	Citations         []Citation `json:"citations,omitempty"`

	// Raw is the full generate response, untouched, for the
	// developer disclosure panel.
	Raw json.RawMessage `json:"raw,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
