package main

import "strings"

// Answer is one answer record from the form-notification payload. Exactly one
// of the value fields is populated depending on Type.
type Answer struct {
	FieldID  string   `json:"fieldId"`
	FieldRef string   `json:"fieldRef"`
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Email    string   `json:"email,omitempty"`
	Choice   string   `json:"choice,omitempty"`
	Choices  []string `json:"choices,omitempty"`
}

// RawSubmission is the inbound payload: either an ordered answer list
// (structured path) or a single raw text block (free-text path).
type RawSubmission struct {
	FormID  string   `json:"formId,omitempty"`
	Answers []Answer `json:"answers,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ExtractedFields holds the five logical fields pulled from a submission.
// FeatureDescription is mandatory; the rest may be empty.
type ExtractedFields struct {
	FeatureDescription string
	UsageFrequency     string
	ServiceTypes       string
	UserInterests      string
	ContactEmail       string
}

// SanitizedFields is ExtractedFields after PII redaction, with the contact
// email replaced by a pseudonymous user ID and identifiers attached.
type SanitizedFields struct {
	FeatureDescription string
	UsageFrequency     string
	ServiceTypes       string
	UserInterests      string
	UserID             string // user_<8-hex>
	Timestamp          string // RFC 3339, UTC
	RequestID          string // req_<14-digit-UTC-timestamp>_<4-hex>
}

// ClassifiedRecord is the canonical normalized record.
type ClassifiedRecord struct {
	FeatureName string
	Description string
	Domain      string
	Niche       []string
	Keywords    []string
	Frequency   string
	UserID      string
	Timestamp   string
	RequestID   string
}

// ProjectedRow is the tabular-sink projection of a ClassifiedRecord.
// List fields are joined by ", "; Status/Message carry the run outcome.
type ProjectedRow struct {
	RequestID   string
	UserID      string
	Timestamp   string
	FeatureName string
	Description string
	Domain      string
	Niche       string
	Keywords    string
	Frequency   string
	Status      string
	Message     string
}

// TicketSpec is the ticket-system projection.
type TicketSpec struct {
	RequestID          string   `json:"request_id"`
	Title              string   `json:"title"`
	Domain             string   `json:"domain"`
	ProblemStatement   string   `json:"problem_statement"`
	ProposedSolution   string   `json:"proposed_solution"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	QANotes            string   `json:"qa_notes"`
}

// The six fixed classification domains. Anything the classifier returns
// outside this set normalizes to DomainOther.
const (
	DomainBooking   = "Booking"
	DomainPayments  = "Payments"
	DomainCalendar  = "Calendar"
	DomainMarketing = "Marketing"
	DomainClients   = "Clients"
	DomainOther     = "Other"
)

var allDomains = []string{
	DomainBooking, DomainPayments, DomainCalendar,
	DomainMarketing, DomainClients, DomainOther,
}

func ValidDomain(s string) bool {
	for _, d := range allDomains {
		if d == s {
			return true
		}
	}
	return false
}

// Sentinel values used when the classifier output is unusable and the
// pipeline completes with a locally built record.
const (
	fallbackFeatureName = "Feature Review Needed"
	fallbackNicheLabel  = "General"
)

// SplitList reverses the ", " join used by ProjectRow. Elements containing a
// comma do not survive the round trip; callers accept that.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func JoinList(items []string) string {
	return strings.Join(items, ", ")
}
