// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "SiteProfile")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// SiteProfileSchema returns the extraction schema for a scraped business site.
// Used to classify the industry and surface the brand identity from page text.
func SiteProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "SiteProfile",
		Description: `You are an expert business analyst. Your task is to profile a company from its website content.
Classify the industry and identify the brand identity expressed in the text.`,
		Fields: []SchemaField{
			{
				Name:        "company",
				Type:        "\"string\"",
				Description: "Company or product name",
				Required:    true,
			},
			{
				Name:        "industry",
				Type:        "\"string\"",
				Description: "Industry vertical (e.g., 'B2B SaaS', 'ecommerce', 'healthcare', 'fintech')",
				Required:    true,
			},
			{
				Name:        "summary",
				Type:        "\"string\"",
				Description: "One-paragraph description of what the company does",
				Required:    true,
			},
			{
				Name:        "audience",
				Type:        "\"string\"",
				Description: "Primary target audience of the business",
				Required:    false,
			},
			{
				Name:        "tone",
				Type:        "\"string\"",
				Description: "Brand tone (e.g., 'playful, consumer-friendly', 'technical, enterprise')",
				Required:    false,
			},
		},
	}
}

