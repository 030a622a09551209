package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartDigestScheduler posts a periodic summary of processed submissions to
// the Slack channel. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 9 * * *" (daily 9am), "0 9 * * 1-5" (weekdays 9am).
func StartDigestScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.DigestSchedule)
	if schedule == "" {
		log.Println("Digest disabled (digest_schedule not set)")
		return
	}
	if api == nil || cfg.SlackChannelID == "" {
		log.Println("Digest disabled: Slack is not configured")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v (digest disabled)", schedule, err)
		return
	}

	log.Printf("Digest scheduled (cron: %s) to channel %s", schedule, cfg.SlackChannelID)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			summary, err := BuildDigest(db, time.Now().Add(-24*time.Hour))
			if err != nil {
				log.Printf("Digest error: %v", err)
				continue
			}
			if _, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(summary, false)); err != nil {
				log.Printf("Digest post error: %v", err)
			}
		}
	}()
}

// BuildDigest summarizes submissions recorded since the cutoff: per-domain
// counts plus how many completed via the local fallback.
func BuildDigest(db *sql.DB, since time.Time) (string, error) {
	counts, err := CountByDomainSince(db, since)
	if err != nil {
		return "", fmt.Errorf("counting by domain: %w", err)
	}
	fallbacks, err := CountFallbacksSince(db, since)
	if err != nil {
		return "", fmt.Errorf("counting fallbacks: %w", err)
	}

	if len(counts) == 0 {
		return "Feature-request digest: no submissions in the last 24h.", nil
	}

	total := 0
	var lines []string
	for _, c := range counts {
		total += c.Count
		lines = append(lines, fmt.Sprintf("• %s: %d", c.Domain, c.Count))
	}

	msg := fmt.Sprintf("Feature-request digest: %d submissions in the last 24h\n%s", total, strings.Join(lines, "\n"))
	if fallbacks > 0 {
		msg += fmt.Sprintf("\n%d completed via local fallback and need review.", fallbacks)
	}
	return msg, nil
}
