package file

import (
	"embed"
	"fmt"
	"io/fs"
)

// defaultsFS holds the shipped prompts and document-type catalog. Users get
// editable copies of these on first use.
//
//go:embed defaults/*.md defaults/doctypes.toml
var defaultsFS embed.FS

// promptExt is the file extension of prompt files.
const promptExt = ".md"

// templatesFile is the catalog file name.
const templatesFile = "doctypes.toml"

func readDefault(name string) (string, error) {
	data, err := fs.ReadFile(defaultsFS, "defaults/"+name)
	if err != nil {
		return "", fmt.Errorf("read embedded %s: %w", name, err)
	}
	return string(data), nil
}

// defaultPromptNames lists the prompts shipped in defaultsFS.
func defaultPromptNames() []string {
	entries, _ := fs.ReadDir(defaultsFS, "defaults")
	var names []string
	for _, e := range entries {
		if name := e.Name(); len(name) > len(promptExt) && name[len(name)-len(promptExt):] == promptExt {
			names = append(names, name[:len(name)-len(promptExt)])
		}
	}
	return names
}
