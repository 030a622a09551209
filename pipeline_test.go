package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type memRowSink struct {
	rows []ProjectedRow
	err  error
}

func (s *memRowSink) AppendRow(row ProjectedRow) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

type memTicketSink struct {
	tickets []TicketSpec
	err     error
}

func (s *memTicketSink) WriteTicket(t TicketSpec) error {
	if s.err != nil {
		return s.err
	}
	s.tickets = append(s.tickets, t)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func sampleSubmission() RawSubmission {
	return RawSubmission{
		FormID: "feature-intake",
		Answers: []Answer{
			{FieldRef: "feature_description", Type: "text", Text: "Let clients book appointments online"},
			{FieldRef: "usage_frequency", Type: "choice", Choice: "Daily"},
			{FieldRef: "service_types", Type: "choices", Choices: []string{"Hair", "Nails"}},
			{FieldRef: "contact_email", Type: "email", Email: "jane.doe@example.com"},
		},
	}
}

func TestPipelineProcess(t *testing.T) {
	gen := &stubGen{responses: []string{
		`{"feature_name": "Online Booking", "description": "Clients book appointments online.", "domain": "Booking", "niche": ["Hair", "Nails"], "keywords": ["booking"]}`,
		goodTicketJSON,
	}}
	rows := &memRowSink{}
	tickets := &memTicketSink{}
	pipe := &Pipeline{Gen: gen, Rows: rows, Tickets: tickets, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if result.Fallback {
		t.Fatalf("clean run marked as fallback")
	}
	if result.Record.Domain != DomainBooking {
		t.Fatalf("unexpected domain %q", result.Record.Domain)
	}
	if result.Record.UserID != "user_"+HashPseudonym("jane.doe@example.com") {
		t.Fatalf("user id not derived from contact email: %q", result.Record.UserID)
	}

	if len(rows.rows) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(rows.rows))
	}
	row := rows.rows[0]
	if row.Niche != "Hair, Nails" {
		t.Fatalf("niche should join with ', ', got %q", row.Niche)
	}
	if row.Status != "success" || row.Message != "classified" {
		t.Fatalf("unexpected status pair: %q / %q", row.Status, row.Message)
	}
	if !strings.HasPrefix(row.RequestID, "req_20240601120000_") {
		t.Fatalf("unexpected request id %q", row.RequestID)
	}

	if len(tickets.tickets) != 1 {
		t.Fatalf("expected 1 written ticket, got %d", len(tickets.tickets))
	}
	if tickets.tickets[0].RequestID != row.RequestID {
		t.Fatalf("ticket request id %q does not match row %q", tickets.tickets[0].RequestID, row.RequestID)
	}
	// The generator must never see the raw contact email.
	for _, prompt := range gen.prompts {
		if strings.Contains(prompt, "jane.doe@example.com") {
			t.Fatalf("raw email leaked into a prompt: %q", prompt)
		}
	}
}

func TestPipelineFallback(t *testing.T) {
	gen := &stubGen{responses: []string{"garbage", "more garbage"}}
	rows := &memRowSink{}
	tickets := &memTicketSink{}
	pipe := &Pipeline{Gen: gen, Rows: rows, Tickets: tickets, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("unusable output should complete via fallback, got %v", err)
	}
	if !result.Fallback {
		t.Fatalf("run not marked as fallback")
	}
	rec := result.Record
	if rec.FeatureName != fallbackFeatureName {
		t.Fatalf("fallback record missing sentinel name, got %q", rec.FeatureName)
	}
	if rec.Domain != DomainOther {
		t.Fatalf("fallback domain should be %q, got %q", DomainOther, rec.Domain)
	}
	if len(rec.Niche) != 2 || rec.Niche[0] != "Hair" || rec.Niche[1] != "Nails" {
		t.Fatalf("fallback niche should split service types, got %v", rec.Niche)
	}
	if len(rec.Keywords) != 2 || rec.Keywords[0] != "Review" {
		t.Fatalf("unexpected fallback keywords %v", rec.Keywords)
	}
	if result.Row.Message != "classified via local fallback" {
		t.Fatalf("unexpected row message %q", result.Row.Message)
	}
	// Permissive ticket generation degrades to the deterministic fallback.
	if len(tickets.tickets) != 1 || tickets.tickets[0].Title != fallbackFeatureName {
		t.Fatalf("unexpected fallback ticket: %+v", tickets.tickets)
	}
}

func TestPipelineStrict(t *testing.T) {
	gen := &stubGen{responses: []string{"garbage"}}
	pipe := &Pipeline{Gen: gen, Rows: &memRowSink{}, Strict: true, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if result != nil {
		t.Fatalf("strict failure should produce no result, got %+v", result)
	}
	if !IsClassificationError(err) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
}

func TestPipelineStrictTicketFailureEmitsNothing(t *testing.T) {
	gen := &stubGen{responses: []string{
		`{"feature_name": "Online Booking", "description": "x", "domain": "Booking", "niche": ["Hair"], "keywords": []}`,
		"garbage",
	}}
	rows := &memRowSink{}
	tickets := &memTicketSink{}
	pipe := &Pipeline{Gen: gen, Rows: rows, Tickets: tickets, Strict: true, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if result != nil {
		t.Fatalf("strict ticket failure should produce no result, got %+v", result)
	}
	if !IsClassificationError(err) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if len(rows.rows) != 0 {
		t.Fatalf("row emitted for a fatally failed run: %d", len(rows.rows))
	}
	if len(tickets.tickets) != 0 {
		t.Fatalf("ticket emitted for a fatally failed run: %d", len(tickets.tickets))
	}
}

func TestPipelineExtractionFailure(t *testing.T) {
	pipe := &Pipeline{Gen: &stubGen{}, Rows: &memRowSink{}, now: fixedClock}

	sub := RawSubmission{Answers: []Answer{{FieldRef: "usage_frequency", Choice: "Daily"}}}
	if _, err := pipe.Process(context.Background(), sub); !IsExtractionError(err) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestPipelineSinkErrorsDoNotUnwind(t *testing.T) {
	gen := &stubGen{responses: []string{
		`{"feature_name": "Online Booking", "description": "x", "domain": "Booking", "niche": ["Hair"], "keywords": []}`,
	}}
	rows := &memRowSink{err: errors.New("disk full")}
	pipe := &Pipeline{Gen: gen, Rows: rows, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if len(result.SinkErrors) != 1 {
		t.Fatalf("expected 1 sink error, got %v", result.SinkErrors)
	}
	var se *SinkError
	if !errors.As(result.SinkErrors[0], &se) || se.Sink != "rows" {
		t.Fatalf("unexpected sink error: %v", result.SinkErrors[0])
	}
	if result.Record.FeatureName != "Online Booking" {
		t.Fatalf("record lost after sink failure: %+v", result.Record)
	}
}

func TestPipelineHints(t *testing.T) {
	gen := &stubGen{responses: []string{
		`{"feature_name": "Invoice export", "description": "Export invoices for clients", "domain": "Clients", "niche": ["Hair"], "keywords": []}`,
	}}
	hints := &DomainHints{
		Domains:  []DomainHint{{Phrase: "invoice", Domain: DomainPayments}},
		Keywords: []KeywordHint{{Phrase: "export", Keyword: "Export"}},
	}
	pipe := &Pipeline{Gen: gen, Rows: &memRowSink{}, Hints: hints, now: fixedClock}

	result, err := pipe.Process(context.Background(), sampleSubmission())
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if result.Record.Domain != DomainPayments {
		t.Fatalf("domain hint not applied, got %q", result.Record.Domain)
	}
	if !containsFold(result.Record.Keywords, "Export") {
		t.Fatalf("keyword hint not applied: %v", result.Record.Keywords)
	}
}
