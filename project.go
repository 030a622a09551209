package main

import (
	"fmt"
	"strings"
)

// ProjectRow maps a ClassifiedRecord to the tabular-sink shape. Pure: list
// fields are joined by ", " and the status pair is appended; nothing else is
// computed or mutated.
func ProjectRow(rec ClassifiedRecord, status, message string) ProjectedRow {
	return ProjectedRow{
		RequestID:   rec.RequestID,
		UserID:      rec.UserID,
		Timestamp:   rec.Timestamp,
		FeatureName: rec.FeatureName,
		Description: rec.Description,
		Domain:      rec.Domain,
		Niche:       JoinList(rec.Niche),
		Keywords:    JoinList(rec.Keywords),
		Frequency:   rec.Frequency,
		Status:      status,
		Message:     message,
	}
}

// FormatTicketMarkdown renders a TicketSpec as the markdown document written
// to the ticket output directory.
func FormatTicketMarkdown(t TicketSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "Request: %s\n", t.RequestID)
	fmt.Fprintf(&b, "Domain: %s\n\n", t.Domain)
	fmt.Fprintf(&b, "## Problem\n\n%s\n\n", t.ProblemStatement)
	fmt.Fprintf(&b, "## Proposed solution\n\n%s\n\n", t.ProposedSolution)
	b.WriteString("## Acceptance criteria\n\n")
	for _, c := range t.AcceptanceCriteria {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	if strings.TrimSpace(t.QANotes) != "" {
		fmt.Fprintf(&b, "\n## QA notes\n\n%s\n", t.QANotes)
	}
	return b.String()
}
