// Package file provides file-backed implementations of driven ports.
// Everything lives under ~/.specforge unless a directory is given.
//
// Adapters:
//   - ConfigStore: TOML settings in config.toml
//   - PromptStore: editable model instructions in prompts/*.md
//   - TemplateStore: the document-type catalog in doctypes.toml
//   - Watcher: reloads prompts and the catalog when their files change
package file
