package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	LLMTimeoutSeconds int    `yaml:"llm_timeout_seconds"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`

	StrictTickets   bool   `yaml:"strict_tickets"`
	DomainHintsPath string `yaml:"domain_hints_path"`

	DBPath          string `yaml:"db_path"`
	TicketOutputDir string `yaml:"ticket_output_dir"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	DigestSchedule string `yaml:"digest_schedule"`
	Timezone       string `yaml:"timezone"`

	// Resolved from Timezone during validation.
	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideBool(&cfg.StrictTickets, "STRICT_TICKETS")
	envOverride(&cfg.DomainHintsPath, "DOMAIN_HINTS_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.TicketOutputDir, "TICKET_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = 60
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./intakebot.db"
	}
	if cfg.TicketOutputDir == "" {
		cfg.TicketOutputDir = "./tickets"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.LLMTimeoutSeconds < 1 {
		log.Fatalf("invalid llm_timeout_seconds '%d': must be >= 1", cfg.LLMTimeoutSeconds)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.DomainHintsPath != "" {
		if _, err := LoadDomainHints(cfg.DomainHintsPath); err != nil {
			log.Fatalf("invalid domain_hints_path '%s': %v", cfg.DomainHintsPath, err)
		}
	}

	if cfg.SlackBotToken == "" && cfg.SlackChannelID != "" {
		log.Fatalf("slack_channel_id is set but slack_bot_token is not")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
