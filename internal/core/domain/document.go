package domain

import (
	"sort"
	"time"
)

// VersionSource records which kind of change displaced a document value.
type VersionSource string

// Available version sources.
const (
	// SourceGenerated marks a value displaced by ordinary generation output.
	SourceGenerated VersionSource = "generated"

	// SourceEdited marks a value displaced by a direct user edit or restore.
	SourceEdited VersionSource = "edited"

	// SourceHarmonized marks a value snapshotted before a verifier fix.
	SourceHarmonized VersionSource = "harmonized"
)

// IsValid returns true if the source is recognised.
func (s VersionSource) IsValid() bool {
	switch s {
	case SourceGenerated, SourceEdited, SourceHarmonized:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s VersionSource) String() string {
	return string(s)
}

// DocVersion is an immutable snapshot of a document.
// Content is the value that existed right before a change, not the new value.
type DocVersion struct {
	// DocType is the document-type key the snapshot belongs to.
	DocType string `json:"docType"`

	// Content is the markdown that was current before the change.
	Content string `json:"content"`

	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`

	// Source is the kind of change that followed the snapshot.
	Source VersionSource `json:"source"`
}

// DocTypeMeta holds optional display and guidance metadata for a document type.
type DocTypeMeta struct {
	// Label is the human-readable name.
	Label string `toml:"label" json:"label"`

	// Description is a one-line summary shown in pickers.
	Description string `toml:"description" json:"description"`

	// Instruction is appended to generation prompts for this type.
	Instruction string `toml:"instruction" json:"instruction,omitempty"`

	// Topics is the guided-mode checklist. Empty means no guided mode.
	Topics []string `toml:"topics" json:"topics,omitempty"`
}

// DocType is an open document-type key. Custom keys carry no metadata.
type DocType struct {
	// Key is the literal label used in ~~~doc:<Key> blocks.
	Key string `json:"key"`

	// Meta is nil for user-defined types.
	Meta *DocTypeMeta `json:"meta,omitempty"`
}

// Label returns the display label, falling back to the key.
func (d DocType) Label() string {
	if d.Meta != nil && d.Meta.Label != "" {
		return d.Meta.Label
	}
	return d.Key
}

// GuidedAvailable reports whether the type has a guided checklist.
// Absence of metadata is not an error; it just disables guided mode.
func (d DocType) GuidedAvailable() bool {
	return d.Meta != nil && len(d.Meta.Topics) > 0
}

// SortedKeys returns the keys of a document mapping in lexical order.
// Prompt construction and listings use it so output is deterministic.
func SortedKeys(docs map[string]string) []string {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VersionDiff compares a historical version with the current document.
type VersionDiff struct {
	DocType string     `json:"docType"`
	Version DocVersion `json:"version"`
	Current string     `json:"current"`

	// Unified is a line-level unified diff from Version.Content to Current.
	Unified    string `json:"unified"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
}
