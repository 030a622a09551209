package main

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Redaction tags substituted for matched PII.
const (
	tagEmail   = "[EMAIL_REDACTED]"
	tagPhone   = "[PHONE_REDACTED]"
	tagPayment = "[PAYMENT_INFO_REDACTED]"
	tagSSN     = "[SSN_REDACTED]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Deliberately broad: also matches phone-shaped digit runs inside other
	// numeric sequences. Over-redaction is the chosen failure mode.
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,2}[\s.\-]?)?(?:\(\d{3}\)|\b\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}\b|\b\d{3}[\s.\-]\d{4}\b`)

	cardPattern = regexp.MustCompile(`\b(?:\d{4}[\s\-]?){3}\d{4}\b`)
	ssnPattern  = regexp.MustCompile(`\b\d{3}[\s\-]?\d{2}[\s\-]?\d{4}\b`)
)

// SanitizeText redacts emails, phone numbers, payment-card numbers and
// SSN-shaped digit groups. Total function: never fails, empty in = empty out.
// Email runs first because local parts can contain digit sequences that would
// otherwise false-positive against the numeric patterns.
func SanitizeText(text string) string {
	if text == "" {
		return text
	}
	text = emailPattern.ReplaceAllString(text, tagEmail)
	text = phonePattern.ReplaceAllString(text, tagPhone)
	text = cardPattern.ReplaceAllString(text, tagPayment)
	text = ssnPattern.ReplaceAllString(text, tagSSN)
	return text
}

// HashPseudonym derives a stable 8-hex pseudonym from an email. The digest is
// one-way and the email itself is never stored. Collisions at this truncation
// length are an accepted, documented risk.
func HashPseudonym(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum)[:8]
}

// NewAnonymousPseudonym returns a random, non-reproducible 8-hex value for
// submissions without a contact email. Two anonymous submissions share no
// derivable relationship.
func NewAnonymousPseudonym() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewUserID returns user_<8-hex>: deterministic for a given email, random
// otherwise.
func NewUserID(email string) string {
	if strings.TrimSpace(email) == "" {
		return "user_" + NewAnonymousPseudonym()
	}
	return "user_" + HashPseudonym(email)
}

// NewRequestID returns req_<YYYYMMDDHHmmss>_<4-hex>. The timestamp component
// is UTC and non-decreasing across calls; the hex suffix disambiguates
// within a second. Not guaranteed globally unique, unique with overwhelming
// probability at operational volumes.
func NewRequestID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("req_%s_%s", now.UTC().Format("20060102150405"), suffix)
}

// SanitizeFields applies SanitizeText to every free-text field, drops the
// contact email in favor of a pseudonymous user ID, and attaches the
// timestamp and request ID. Structured fields (frequency) pass through
// unredacted.
func SanitizeFields(f ExtractedFields, now time.Time) SanitizedFields {
	return SanitizedFields{
		FeatureDescription: SanitizeText(f.FeatureDescription),
		UsageFrequency:     f.UsageFrequency,
		ServiceTypes:       SanitizeText(f.ServiceTypes),
		UserInterests:      SanitizeText(f.UserInterests),
		UserID:             NewUserID(f.ContactEmail),
		Timestamp:          now.UTC().Format(time.RFC3339),
		RequestID:          NewRequestID(now),
	}
}
