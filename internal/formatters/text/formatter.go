// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/formatters"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[document.Verdict]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[document.Verdict]*color.Color{
			document.VerdictClean:         color.New(color.FgGreen),
			document.VerdictSuspicious:    color.New(color.FgYellow),
			document.VerdictFraudulent:    color.New(color.FgRed, color.Bold),
			document.VerdictIndeterminate: color.New(color.FgCyan),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report *document.RiskReport, plan *document.RedactionPlan, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var b strings.Builder

	verdictColor, ok := f.colors[report.Verdict]
	if !ok {
		verdictColor = color.New(color.FgWhite)
	}
	fmt.Fprintf(&b, "Document: %s\n", report.DocumentID)
	fmt.Fprintf(&b, "Verdict:  %s (score %.1f/100)\n", verdictColor.Sprint(strings.ToUpper(string(report.Verdict))), report.Score)
	fmt.Fprintf(&b, "Run:      %s, %s\n", report.ID, report.FinishedAt.Sub(report.StartedAt).Round(1e6))

	if len(report.Findings) > 0 {
		b.WriteString("\nFindings:\n")
		for _, finding := range report.Findings {
			fmt.Fprintf(&b, "  [%s] %s page %d confidence %.2f\n",
				strings.ToUpper(finding.Severity.String()), finding.Kind, finding.PageIndex, finding.Confidence)
			if options.Verbose && finding.Evidence.Region != nil {
				r := finding.Evidence.Region
				fmt.Fprintf(&b, "      region %dx%d at (%d,%d)\n", r.Width, r.Height, r.X, r.Y)
			}
		}
	}

	if len(report.Duplicates) > 0 {
		b.WriteString("\nDuplicate matches:\n")
		for _, d := range report.Duplicates {
			fmt.Fprintf(&b, "  %s page %d (distance %d)\n", d.DocumentID, d.PageIndex, d.Distance)
		}
	}

	if len(report.PIISummaries) > 0 {
		b.WriteString("\nPII detected:\n")
		for _, s := range report.PIISummaries {
			fmt.Fprintf(&b, "  %s: %d (highest risk %s)\n", s.Type, s.Count, s.HighestRisk)
		}
	}

	if options.ShowPlan && plan != nil {
		fmt.Fprintf(&b, "\nRedaction plan: %d actions, %d review flags\n", len(plan.Actions), len(plan.Reviews))
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	if options.Verbose {
		b.WriteString("\nChecks:\n")
		for _, c := range report.Contributions {
			line := fmt.Sprintf("  %s page %d: %s", c.Kind, c.PageIndex, c.Status)
			if c.Error != "" {
				line += " (" + c.Error + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String(), nil
}

func init() {
	formatters.Register(NewFormatter())
}
