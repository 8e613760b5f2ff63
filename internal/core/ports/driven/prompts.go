package driven

import "github.com/custodia-labs/specforge/internal/core/domain"

// PromptStore provides access to the instruction texts sent to the model.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. These define the contract between prompt
// consumers and providers.
const (
	// PromptBaseSystem is the base system instruction for chat and generation.
	// It describes the ~~~doc and ~~~image block markers.
	PromptBaseSystem = "base_system"

	// PromptVerifySystem instructs the model to cross-check documents and emit
	// ~~~issues and ~~~summary blocks.
	PromptVerifySystem = "verify_system"

	// PromptHarmonizeSystem instructs the model to rewrite documents so they
	// resolve a report, emitting full ~~~doc blocks.
	PromptHarmonizeSystem = "harmonize_system"

	// PromptGuidedSystem is appended during guided interviews. It expects a
	// %s placeholder for the document label and a %s placeholder for the
	// numbered topic list.
	PromptGuidedSystem = "guided_system"
)

// TemplateStore provides the document-type catalog.
type TemplateStore interface {
	// List returns the known document types in catalog order.
	List() []domain.DocType

	// Get returns the document type for key. Unknown keys are valid custom
	// types and come back with nil metadata.
	Get(key string) domain.DocType

	// Reload re-reads the catalog from its backing storage.
	Reload() error
}
