package main

import (
	"context"
	"errors"
	"log"
	"time"
)

// Pipeline sequences extract, sanitize, classify and project for one
// submission. Collaborators are injected at construction; no stage reads
// ambient state and nothing is shared between runs, so independent
// submissions can be processed concurrently without locking.
type Pipeline struct {
	Gen     Generator
	Rows    RowSink
	Tickets TicketSink
	Hints   *DomainHints

	// Strict switches the ticket-generation variant to fatal-on-invalid:
	// classifier failures become ClassificationError instead of a fallback
	// record, and ticket documents must pass full schema validation.
	Strict bool

	// now is a seam for tests; nil means time.Now.
	now func() time.Time
}

// RunResult reports one completed run. SinkErrors are reported to the caller
// but never invalidate the record already produced.
type RunResult struct {
	Record     ClassifiedRecord
	Row        ProjectedRow
	Ticket     *TicketSpec
	Fallback   bool
	SinkErrors []error
}

// Process runs a submission end to end. The error return is non-nil only for
// fatal failures: ExtractionError always, ClassificationError in strict
// mode. Sinks are invoked only after every fallible stage has completed, so a
// fatally failed run emits nothing. A fallback-completed run is a success
// from the caller's perspective; degradation shows only through the sentinel
// feature name.
func (p *Pipeline) Process(ctx context.Context, sub RawSubmission) (*RunResult, error) {
	fields, err := p.extract(ctx, sub)
	if err != nil {
		return nil, err
	}

	clock := p.now
	if clock == nil {
		clock = time.Now
	}
	sanitized := SanitizeFields(fields, clock())
	log.Printf("pipeline sanitized request=%s user=%s", sanitized.RequestID, sanitized.UserID)

	result := &RunResult{}
	record, err := ClassifySubmission(ctx, p.Gen, sanitized)
	switch {
	case err == nil:
		// ok
	case p.Strict:
		return nil, &ClassificationError{Reason: "strict mode", Err: err}
	case errors.Is(err, ErrOutputUnusable):
		log.Printf("pipeline classify unusable request=%s (falling back): %v", sanitized.RequestID, err)
		record = FallbackRecord(sanitized)
		result.Fallback = true
	default:
		// Timeouts and transport failures follow the same fallback path as
		// unusable output.
		log.Printf("pipeline classify error request=%s (falling back): %v", sanitized.RequestID, err)
		record = FallbackRecord(sanitized)
		result.Fallback = true
	}

	if p.Hints != nil {
		p.Hints.Apply(&record)
	}
	result.Record = record

	// Ticket generation can still fail fatally in strict mode, so it must
	// complete before anything reaches a sink: a run that errors emits nothing.
	if p.Tickets != nil {
		ticket, err := BuildTicketSpec(ctx, p.Gen, record, p.Strict)
		if err != nil {
			return nil, err
		}
		result.Ticket = &ticket
	}

	result.Row = ProjectRow(record, "success", rowMessage(result.Fallback))
	if p.Rows != nil {
		if err := p.Rows.AppendRow(result.Row); err != nil {
			log.Printf("pipeline row sink error request=%s: %v", record.RequestID, err)
			result.SinkErrors = append(result.SinkErrors, &SinkError{Sink: "rows", Err: err})
		}
	}

	if p.Tickets != nil && result.Ticket != nil {
		if err := p.Tickets.WriteTicket(*result.Ticket); err != nil {
			log.Printf("pipeline ticket sink error request=%s: %v", record.RequestID, err)
			result.SinkErrors = append(result.SinkErrors, &SinkError{Sink: "tickets", Err: err})
		}
	}

	log.Printf("pipeline complete request=%s domain=%s fallback=%t sink_errors=%d",
		record.RequestID, record.Domain, result.Fallback, len(result.SinkErrors))
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, sub RawSubmission) (ExtractedFields, error) {
	if len(sub.Answers) > 0 {
		return ExtractFields(sub)
	}
	return ParseNotificationText(ctx, p.Gen, sub.Text)
}

// FallbackRecord builds the deterministic substitute used when classifier
// output is unusable. The sentinel feature name marks the record for human
// follow-up; niche comes from comma-splitting the sanitized service types.
func FallbackRecord(s SanitizedFields) ClassifiedRecord {
	niche := SplitList(s.ServiceTypes)
	if len(niche) == 0 {
		niche = []string{fallbackNicheLabel}
	}
	return ClassifiedRecord{
		FeatureName: fallbackFeatureName,
		Description: s.FeatureDescription,
		Domain:      DomainOther,
		Niche:       niche,
		Keywords:    []string{"Review", "Unprocessed"},
		Frequency:   s.UsageFrequency,
		UserID:      s.UserID,
		Timestamp:   s.Timestamp,
		RequestID:   s.RequestID,
	}
}

func rowMessage(fallback bool) string {
	if fallback {
		return "classified via local fallback"
	}
	return "classified"
}
