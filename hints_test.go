package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDomainHintsApply(t *testing.T) {
	hints := &DomainHints{
		Domains: []DomainHint{
			{Phrase: "gift card", Domain: DomainPayments},
			{Phrase: "reminder", Domain: DomainCalendar},
		},
		Keywords: []KeywordHint{
			{Phrase: "gift card", Keyword: "GiftCard"},
		},
	}

	rec := ClassifiedRecord{
		FeatureName: "Gift Card Sales",
		Description: "Sell a GIFT CARD directly from the booking page, with a reminder email.",
		Domain:      DomainBooking,
		Keywords:    []string{"sales"},
	}
	hints.Apply(&rec)

	// First matching domain hint wins even when a later one also matches.
	if rec.Domain != DomainPayments {
		t.Fatalf("expected domain %q, got %q", DomainPayments, rec.Domain)
	}
	if !containsFold(rec.Keywords, "GiftCard") {
		t.Fatalf("keyword hint not appended: %v", rec.Keywords)
	}

	// Applying twice must not duplicate keywords.
	hints.Apply(&rec)
	count := 0
	for _, k := range rec.Keywords {
		if k == "GiftCard" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("keyword duplicated on re-apply: %v", rec.Keywords)
	}
}

func TestDomainHintsApplyNoMatch(t *testing.T) {
	hints := &DomainHints{
		Domains: []DomainHint{{Phrase: "gift card", Domain: DomainPayments}},
	}
	rec := ClassifiedRecord{Description: "nothing relevant", Domain: DomainBooking}
	hints.Apply(&rec)
	if rec.Domain != DomainBooking {
		t.Fatalf("domain changed without a match: %q", rec.Domain)
	}
}

func TestLoadDomainHints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.yaml")
	content := `domains:
  - phrase: gift card
    domain: Payments
keywords:
  - phrase: export
    keyword: Export
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write hints file: %v", err)
	}

	hints, err := LoadDomainHints(path)
	if err != nil {
		t.Fatalf("LoadDomainHints error: %v", err)
	}
	if len(hints.Domains) != 1 || hints.Domains[0].Domain != DomainPayments {
		t.Fatalf("unexpected domains: %+v", hints.Domains)
	}
	if len(hints.Keywords) != 1 || hints.Keywords[0].Keyword != "Export" {
		t.Fatalf("unexpected keywords: %+v", hints.Keywords)
	}
}

func TestLoadDomainHintsRejectsUnknownDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.yaml")
	content := `domains:
  - phrase: gift card
    domain: Astrology
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write hints file: %v", err)
	}
	if _, err := LoadDomainHints(path); err == nil {
		t.Fatalf("expected error for unknown domain")
	}
}
