// Package pipeline provides the high-level orchestration for landing page generation.
package pipeline

// Step identifiers, stable short keys used in status records and audit logs.
const (
	StepScrape     = "scrape"
	StepSearch     = "search"
	StepSpec       = "spec"
	StepImages     = "images"
	StepAssets     = "assets"
	StepHTML       = "html"
	StepDeploy     = "deploy"
	StepSave       = "save"
	StepScreenshot = "screenshot"
)

// StepDef describes one stage of the pipeline. Fatal steps abort the run on
// failure; the rest are recorded as errors and the run continues.
type StepDef struct {
	ID    string
	Label string
	Fatal bool
}

// definition is the single ordered list of stages every run passes through.
// Both the pending-record seeding and the resolver's completeness check
// derive from it.
var definition = []StepDef{
	{ID: StepScrape, Label: "Scrape target site", Fatal: true},
	{ID: StepSearch, Label: "Research market context", Fatal: false},
	{ID: StepSpec, Label: "Generate content spec", Fatal: true},
	{ID: StepImages, Label: "Generate section images", Fatal: false},
	{ID: StepAssets, Label: "Upload generated assets", Fatal: false},
	{ID: StepHTML, Label: "Generate page HTML", Fatal: true},
	{ID: StepDeploy, Label: "Deploy landing page", Fatal: true},
	{ID: StepSave, Label: "Save page record", Fatal: false},
	{ID: StepScreenshot, Label: "Capture preview screenshot", Fatal: false},
}

// Definition returns a copy of the ordered step list.
func Definition() []StepDef {
	out := make([]StepDef, len(definition))
	copy(out, definition)
	return out
}

// TotalSteps returns the pipeline definition's length.
func TotalSteps() int {
	return len(definition)
}

// LabelFor resolves the human label for a step identifier.
func LabelFor(stepID string) string {
	for _, def := range definition {
		if def.ID == stepID {
			return def.Label
		}
	}
	return stepID
}
