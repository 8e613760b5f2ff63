// Package domain defines the core business entities for specforge.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Session: One project's chat history, documents and document history
//   - DocVersion: An immutable snapshot of a document taken before a change
//   - DocType: An open document-type key with optional display metadata
//   - VerifierIssue / VerifierState: The transient consistency report
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
