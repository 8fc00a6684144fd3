package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RenderJSON writes the report as indented JSON
func RenderJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes the report as a Markdown digest
func RenderMarkdown(report *Report, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Theme Report: %s\n\n", report.ClientID)
	fmt.Fprintf(&b, "%d approved theme(s)\n\n", len(report.Themes))

	for i, t := range report.Themes {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, t.Subject)
		fmt.Fprintf(&b, "%s\n\n", t.CanonicalStatement)
		fmt.Fprintf(&b, "- **Confidence:** %.2f\n", t.ConfidenceScore)
		fmt.Fprintf(&b, "- **Evidence:** %d quote(s) across %d compan(ies)\n", t.EvidenceCount, len(t.CompaniesCovered))
		if t.DominantSentiment != "" {
			fmt.Fprintf(&b, "- **Sentiment:** %s\n", t.DominantSentiment)
		}
		b.WriteString("\n")

		for _, q := range t.Quotes {
			marker := ""
			if q.Featured {
				marker = " ⭐"
			}
			fmt.Fprintf(&b, "> %s\n>\n> — %s, %s (relevance %.1f, %s)%s\n\n",
				q.Text, q.Interviewee, q.Company, q.RelevanceScore, q.Sentiment, marker)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints a one-screen digest to stdout
func RenderSummary(report *Report) {
	fmt.Printf("\nClient: %s\n", report.ClientID)
	fmt.Printf("Approved themes: %d\n", len(report.Themes))
	for _, t := range report.Themes {
		fmt.Printf("  [%.2f] %s (%d quotes, %d companies)\n",
			t.ConfidenceScore, t.Subject, len(t.Quotes), len(t.CompaniesCovered))
	}
}
