package main

import (
	"log"
	"net/http"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	var api *slack.Client
	if cfg.SlackBotToken != "" {
		api = slack.New(cfg.SlackBotToken)
	}

	var hints *DomainHints
	if cfg.DomainHintsPath != "" {
		hints, err = LoadDomainHints(cfg.DomainHintsPath)
		if err != nil {
			log.Fatalf("Failed to load domain hints: %v", err)
		}
		log.Printf("Loaded %d domain hints and %d keyword hints from %s",
			len(hints.Domains), len(hints.Keywords), cfg.DomainHintsPath)
	}

	pipe := &Pipeline{
		Gen:     NewLLMClient(cfg),
		Rows:    &SQLiteRowSink{DB: db, API: api, ChannelID: cfg.SlackChannelID},
		Tickets: &FileTicketSink{Dir: cfg.TicketOutputDir},
		Hints:   hints,
		Strict:  cfg.StrictTickets,
	}

	StartDigestScheduler(cfg, db, api)

	srv := &Server{Cfg: cfg, Pipe: pipe}
	log.Printf("Starting Feature Intake Bot on %s (provider=%s strict=%t)...",
		cfg.ListenAddr, cfg.LLMProvider, cfg.StrictTickets)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Routes()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
