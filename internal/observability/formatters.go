// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/landing-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScrapeResult outputs a summary of the scraped target site.
func (p *Printer) PrintScrapeResult(result *types.ScrapeResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", result.Metadata.Title))
	sb.WriteString(fmt.Sprintf("Industry: %s\n", result.Metadata.Industry))
	if result.Metadata.Description != "" {
		sb.WriteString(fmt.Sprintf("About:    %s\n", result.Metadata.Description))
	}
	sb.WriteString(fmt.Sprintf("Content:  %d chars\n", len(result.Markdown)))

	if result.Branding.PrimaryColor != "" || result.Branding.Logo != "" {
		sb.WriteString("\nBranding:\n")
		if result.Branding.PrimaryColor != "" {
			sb.WriteString(fmt.Sprintf("  • color %s\n", result.Branding.PrimaryColor))
		}
		if result.Branding.Logo != "" {
			sb.WriteString(fmt.Sprintf("  • logo %s\n", result.Branding.Logo))
		}
		if n := len(result.Branding.ImageURLs); n > 0 {
			sb.WriteString(fmt.Sprintf("  • %d brand image(s)\n", n))
		}
	}

	p.printBox("SCRAPED SITE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSearchResult outputs the market research summary with citations.
func (p *Printer) PrintSearchResult(result *types.SearchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query: %s\n", result.Query))
	sb.WriteString(fmt.Sprintf("%d chars of results\n", len(result.Results)))

	if len(result.Citations) > 0 {
		sb.WriteString("\nCitations:\n")
		count := min(len(result.Citations), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", result.Citations[i]))
		}
		if len(result.Citations) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Citations)-maxItemsToShow))
		}
	}

	p.printBox("INDUSTRY RESEARCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSpec outputs a summary of the generated landing page spec.
func (p *Printer) PrintSpec(spec *types.LandingSpec) {
	if spec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Model: %s\n", spec.Model))
	sb.WriteString(fmt.Sprintf("Spec:  %d chars\n", len(spec.Text)))

	if spec.Structured != nil {
		sb.WriteString(fmt.Sprintf("\nTitle: %s\n", spec.Structured.Title))
		sb.WriteString("Sections:\n")
		for _, section := range spec.Structured.Sections {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", section.ID, section.Headline))
		}
		sb.WriteString(fmt.Sprintf("CTA: %s\n", spec.Structured.CallToAction))
	}

	p.printBox("LANDING PAGE SPEC", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAssets outputs the uploaded asset list.
func (p *Printer) PrintAssets(assets []types.UploadedAsset) {
	if len(assets) == 0 {
		return
	}

	var sb strings.Builder
	for _, asset := range assets {
		sb.WriteString(fmt.Sprintf("  • %s\n", asset.Name))
		sb.WriteString(fmt.Sprintf("    %s\n", asset.URL))
	}

	p.printBox(fmt.Sprintf("UPLOADED ASSETS (%d)", len(assets)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the final state of a completed run.
func (p *Printer) PrintRunSummary(page *types.LandingPage) {
	if page == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", page.RunID))
	sb.WriteString(fmt.Sprintf("Target:    %s\n", page.URL))
	if page.Industry != "" {
		sb.WriteString(fmt.Sprintf("Industry:  %s\n", page.Industry))
	}
	sb.WriteString(fmt.Sprintf("HTML:      %d bytes\n", len(page.HTML)))
	sb.WriteString(fmt.Sprintf("Images:    %d\n", len(page.Images)))
	if page.LiveURL != "" {
		sb.WriteString(fmt.Sprintf("Live:      %s\n", page.LiveURL))
	}
	if page.ScreenshotURL != "" {
		sb.WriteString(fmt.Sprintf("Preview:   %s\n", page.ScreenshotURL))
	}

	p.printBox("RUN COMPLETE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSteps outputs the final step list with statuses.
func (p *Printer) PrintSteps(steps []types.StepRecord) {
	if len(steps) == 0 {
		return
	}

	var sb strings.Builder
	for _, rec := range steps {
		marker := " "
		switch rec.Status {
		case types.StepSuccess:
			marker = "✓"
		case types.StepError:
			marker = "✗"
		case types.StepRunning:
			marker = "…"
		}
		sb.WriteString(fmt.Sprintf("%s %-12s %s", marker, rec.StepID, rec.Status))
		if rec.DurationMs != nil {
			sb.WriteString(fmt.Sprintf(" (%dms)", *rec.DurationMs))
		}
		if rec.Error != "" {
			sb.WriteString(fmt.Sprintf("\n    %s", rec.Error))
		}
		sb.WriteString("\n")
	}

	p.printBox("PIPELINE STEPS", strings.TrimSuffix(sb.String(), "\n"))
}
