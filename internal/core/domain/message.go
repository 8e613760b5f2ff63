package domain

import "time"

// Role identifies the author of a chat turn.
type Role string

// Available roles. The generation service calls the assistant "model".
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Image is the outcome of one image-generation request from a ~~~image:...~~~ marker.
type Image struct {
	// Prompt is the marker description.
	Prompt string `json:"prompt"`

	// URL is a remote URL or a data: URL. Empty when generation failed.
	URL string `json:"url,omitempty"`

	// Error is set when generation failed for this prompt only.
	Error string `json:"error,omitempty"`
}

// Message is one finalized chat turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Images    []Image   `json:"images,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TurnResult is the outcome of one finalized generation round trip.
type TurnResult struct {
	// Message is the model turn appended to the session.
	Message Message `json:"message"`

	// Changed lists document types whose content changed, sorted.
	Changed []string `json:"changed"`

	// Cancelled is set when the stream was aborted; partial output was kept.
	Cancelled bool `json:"cancelled"`

	// Interrupted is set when the stream broke after some text arrived;
	// the partial output was kept.
	Interrupted bool `json:"interrupted"`

	// Failed is set on transport failure before any text arrived; Message
	// then carries the user-visible connection error.
	Failed bool `json:"failed"`
}
