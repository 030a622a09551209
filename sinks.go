package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/slack-go/slack"
)

// RowSink accepts one projected row per completed run. Implementations own
// no retry or batching; failures are reported up and never unwind the
// already-completed classification.
type RowSink interface {
	AppendRow(row ProjectedRow) error
}

// TicketSink accepts one ticket spec per completed run.
type TicketSink interface {
	WriteTicket(t TicketSpec) error
}

// SQLiteRowSink persists rows and optionally announces them to a Slack
// channel. A Slack post failure is logged but not returned: the row is
// already durably stored, which is the sink's contract.
type SQLiteRowSink struct {
	DB        *sql.DB
	API       *slack.Client
	ChannelID string
}

func (s *SQLiteRowSink) AppendRow(row ProjectedRow) error {
	if err := InsertRow(s.DB, row); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}

	if s.API != nil && s.ChannelID != "" {
		msg := fmt.Sprintf("New feature request `%s` [%s] %s — niche: %s",
			row.RequestID, row.Domain, row.FeatureName, row.Niche)
		if _, _, err := s.API.PostMessage(s.ChannelID, slack.MsgOptionText(msg, false)); err != nil {
			log.Printf("row sink slack post error request=%s: %v", row.RequestID, err)
		}
	}
	return nil
}

// FileTicketSink writes each ticket spec as a markdown file named after its
// request ID.
type FileTicketSink struct {
	Dir string
}

func (s *FileTicketSink) WriteTicket(t TicketSpec) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(s.Dir, sanitizeFilename(t.RequestID)+".md")
	if err := os.WriteFile(path, []byte(FormatTicketMarkdown(t)), 0644); err != nil {
		return err
	}
	log.Printf("ticket written request=%s path=%s", t.RequestID, path)
	return nil
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return replacer.Replace(s)
}
