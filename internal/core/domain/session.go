package domain

import (
	"maps"
	"sort"
	"time"
)

// Trimming defaults applied at the persistence boundary.
const (
	DefaultMaxMessages       = 200
	DefaultMaxVersionsPerDoc = 3
)

// MinVerifyDocuments is the smallest document set worth cross-checking.
const MinVerifyDocuments = 2

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "Untitled project"

// Session is the aggregate root for one project.
// It exclusively owns its documents and their version history.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Messages is the finalized chat history in order.
	Messages []Message `json:"messages"`

	// Documents maps docType key to current markdown.
	Documents map[string]string `json:"documents"`

	// DocumentHistory is append-only between saves; see Trimmed.
	DocumentHistory []DocVersion `json:"documentHistory"`

	// GuidedDocType is the docType being interviewed for, empty outside
	// guided mode.
	GuidedDocType string `json:"guidedDocType,omitempty"`
}

// SessionSummary is a listing row.
type SessionSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	MessageCount  int       `json:"messageCount"`
	DocumentCount int       `json:"documentCount"`
}

// NewSession creates an empty session.
func NewSession(id, name string, now time.Time) *Session {
	if name == "" {
		name = DefaultSessionName
	}
	return &Session{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Documents: make(map[string]string),
	}
}

// Summary returns the listing row for the session.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		Name:          s.Name,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		MessageCount:  len(s.Messages),
		DocumentCount: len(s.Documents),
	}
}

// touch refreshes UpdatedAt. Every mutation goes through it.
func (s *Session) touch(now time.Time) {
	s.UpdatedAt = now
}

// MergeDocuments overwrites every key present in newDocs (last write wins).
// Keys absent from newDocs are left untouched. No history is recorded.
func (s *Session) MergeDocuments(newDocs map[string]string, now time.Time) {
	if s.Documents == nil {
		s.Documents = make(map[string]string, len(newDocs))
	}
	for docType, content := range newDocs {
		s.Documents[docType] = content
	}
	s.touch(now)
}

// EditDocument is a single-key overwrite without history.
func (s *Session) EditDocument(docType, content string, now time.Time) {
	s.MergeDocuments(map[string]string{docType: content}, now)
}

// SnapshotVersions appends one DocVersion per entry of docs.
// docs must be captured BEFORE the change it precedes.
func (s *Session) SnapshotVersions(docs map[string]string, source VersionSource, now time.Time) {
	for _, docType := range SortedKeys(docs) {
		s.DocumentHistory = append(s.DocumentHistory, DocVersion{
			DocType:   docType,
			Content:   docs[docType],
			Timestamp: now,
			Source:    source,
		})
	}
	s.touch(now)
}

// ApplyChange snapshots the current value of docType (if any) under source
// and then overwrites it. This is the only way callers should mutate a single
// document so the snapshot-before-merge order cannot be broken.
func (s *Session) ApplyChange(docType, content string, source VersionSource, now time.Time) {
	s.ApplyChanges(map[string]string{docType: content}, source, now)
}

// ApplyChanges is ApplyChange over a mapping. Keys whose content is unchanged
// are neither snapshotted nor counted as changes. It returns the changed keys.
func (s *Session) ApplyChanges(newDocs map[string]string, source VersionSource, now time.Time) []string {
	prior := make(map[string]string)
	changed := make(map[string]string)
	for docType, content := range newDocs {
		old, exists := s.Documents[docType]
		if exists && old == content {
			continue
		}
		if exists {
			prior[docType] = old
		}
		changed[docType] = content
	}
	if len(changed) == 0 {
		return nil
	}
	if len(prior) > 0 {
		s.SnapshotVersions(prior, source, now)
	}
	s.MergeDocuments(changed, now)
	return SortedKeys(changed)
}

// AppendMessage adds a finalized chat turn.
func (s *Session) AppendMessage(msg Message, now time.Time) {
	s.Messages = append(s.Messages, msg)
	s.touch(now)
}

// Rename changes the display name.
func (s *Session) Rename(name string, now time.Time) {
	s.Name = name
	s.touch(now)
}

// StartGuided puts the session in guided mode for docType.
func (s *Session) StartGuided(docType string, now time.Time) {
	s.GuidedDocType = docType
	s.touch(now)
}

// StopGuided leaves guided mode. It reports whether the session was guided.
func (s *Session) StopGuided(now time.Time) bool {
	if s.GuidedDocType == "" {
		return false
	}
	s.GuidedDocType = ""
	s.touch(now)
	return true
}

// HistoryFor returns the versions of docType in ascending timestamp order.
func (s *Session) HistoryFor(docType string) []DocVersion {
	var out []DocVersion
	for _, v := range s.DocumentHistory {
		if v.DocType == docType {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// LastModelMessage returns the most recent model turn, if any.
func (s *Session) LastModelMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleModel {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	c := *s
	c.Documents = maps.Clone(s.Documents)
	if c.Documents == nil {
		c.Documents = make(map[string]string)
	}
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.Images = append([]Image(nil), m.Images...)
		c.Messages[i] = m
	}
	c.DocumentHistory = append([]DocVersion(nil), s.DocumentHistory...)
	return &c
}

// TrimPolicy bounds persisted session size.
type TrimPolicy struct {
	// MaxMessages keeps only the most recent messages. Zero disables the cap.
	MaxMessages int

	// MaxVersionsPerDoc keeps only the most recent versions per docType.
	// Zero disables the cap.
	MaxVersionsPerDoc int
}

// DefaultTrimPolicy returns the persistence caps (200 messages, 3 versions).
func DefaultTrimPolicy() TrimPolicy {
	return TrimPolicy{
		MaxMessages:       DefaultMaxMessages,
		MaxVersionsPerDoc: DefaultMaxVersionsPerDoc,
	}
}

// Trimmed returns a copy bounded by the policy. The receiver is not modified,
// so an in-memory session may hold more than the caps until the next save.
func (s *Session) Trimmed(p TrimPolicy) *Session {
	c := s.Clone()

	if p.MaxMessages > 0 && len(c.Messages) > p.MaxMessages {
		c.Messages = append([]Message(nil), c.Messages[len(c.Messages)-p.MaxMessages:]...)
	}

	if p.MaxVersionsPerDoc > 0 {
		c.DocumentHistory = trimVersions(c.DocumentHistory, p.MaxVersionsPerDoc)
	}

	return c
}

// trimVersions keeps the newest limit versions per docType. Recency is the
// timestamp, with append position breaking ties. Output is ascending.
func trimVersions(history []DocVersion, limit int) []DocVersion {
	type indexed struct {
		pos int
		v   DocVersion
	}
	newer := func(a, b indexed) bool {
		if !a.v.Timestamp.Equal(b.v.Timestamp) {
			return a.v.Timestamp.After(b.v.Timestamp)
		}
		return a.pos > b.pos
	}

	byType := make(map[string][]indexed)
	for i, v := range history {
		byType[v.DocType] = append(byType[v.DocType], indexed{pos: i, v: v})
	}

	kept := make([]indexed, 0, len(history))
	for _, versions := range byType {
		sort.Slice(versions, func(i, j int) bool { return newer(versions[i], versions[j]) })
		if len(versions) > limit {
			versions = versions[:limit]
		}
		kept = append(kept, versions...)
	}
	sort.Slice(kept, func(i, j int) bool { return newer(kept[j], kept[i]) })

	out := make([]DocVersion, len(kept))
	for i, k := range kept {
		out[i] = k.v
	}
	return out
}
