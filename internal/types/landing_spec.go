package types

// SpecSection is one planned section of the landing page.
type SpecSection struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	Body     string `json:"body,omitempty"`
}

// LandingSpec is the generated landing page specification. Text carries the
// full prose specification fed to downstream prompts; Structured is the
// machine-readable portion validated against schemas/landing_spec.json.
type LandingSpec struct {
	Text       string          `json:"text"`
	Structured *StructuredSpec `json:"structured,omitempty"`
	Model      string          `json:"model"`
}

// StructuredSpec is the schema-validated portion of a landing spec.
type StructuredSpec struct {
	Title           string        `json:"title"`
	MetaDescription string        `json:"meta_description"`
	Keywords        []string      `json:"keywords,omitempty"`
	Sections        []SpecSection `json:"sections"`
	CallToAction    string        `json:"call_to_action"`
}
