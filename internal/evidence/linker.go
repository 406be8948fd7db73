// Package evidence resolves the links to shift photos stored on the shared drive.
package evidence

import (
	"strings"

	"example.com/timesheet/internal/domain"
)

// Linker hands out evidence URLs. Uploading is done by the submitting
// client; shifts keep whatever link it produced.
type Linker struct {
	root        string
	placeholder string
}

// NewLinker builds a Linker. An empty placeholder defaults to the drive root.
func NewLinker(root, placeholder string) *Linker {
	root = strings.TrimSpace(root)
	placeholder = strings.TrimSpace(placeholder)
	if placeholder == "" {
		placeholder = root
	}
	return &Linker{root: root, placeholder: placeholder}
}

// DriveRoot returns the link to the evidence folder.
func (l *Linker) DriveRoot() string {
	return l.root
}

// Placeholder is stored for shifts whose photo could not be uploaded.
func (l *Linker) Placeholder() string {
	return l.placeholder
}

// Shift returns the shift's link, the placeholder when it has none, or ""
// when neither is configured.
func (l *Linker) Shift(ts domain.Timesheet) string {
	if link := strings.TrimSpace(ts.EvidenceLink); link != "" {
		return link
	}
	return l.placeholder
}
