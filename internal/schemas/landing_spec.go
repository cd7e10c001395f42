package schemas

import (
	_ "embed"
)

//go:embed landing_spec.json
var landingSpecSchema string

// LandingSpecSchema returns the JSON Schema for structured landing page specs.
func LandingSpecSchema() string {
	return landingSpecSchema
}

// ValidateLandingSpec validates a structured landing spec JSON document.
// Returns a *ValidationError listing the offending fields when invalid.
func ValidateLandingSpec(jsonContent string) error {
	return ValidateJSONString(landingSpecSchema, jsonContent)
}
