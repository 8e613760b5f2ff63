// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - GenerationService: Streaming model calls (chat, generate, verify, harmonize)
//   - SessionStore: Session persistence (SQLite, Redis or in-memory)
//   - ConfigStore: Application configuration
//   - PromptStore: Instruction texts
//   - TemplateStore: Document-type catalog
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ImageGenerator: Renders ~~~image markers. Without it, markers stay as text.
//   - AIConfigValidator: Pings providers when settings change.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
