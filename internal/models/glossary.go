package models

// GlossaryCategory groups related glossary terms.
type GlossaryCategory struct {
	Name  string         `json:"name"`
	Terms []GlossaryTerm `json:"terms"`
}

// GlossaryTerm defines a single reported figure.
type GlossaryTerm struct {
	Term       string `json:"term"`
	Label      string `json:"label"`
	Definition string `json:"definition"`
	Formula    string `json:"formula,omitempty"`
}
