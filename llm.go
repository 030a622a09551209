package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/xeipuuv/gojsonschema"
)

// Generator is the external classification capability boundary: one
// synchronous text-in/text-out operation. Latency, cost and availability are
// opaque to the core; only the parsing contract below is imposed on it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// LLMClient implements Generator against Anthropic or OpenAI depending on
// configuration, following the same provider switch as the rest of the
// config surface.
type LLMClient struct {
	cfg Config
}

func NewLLMClient(cfg Config) *LLMClient {
	return &LLMClient{cfg: cfg}
}

func (c *LLMClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch c.cfg.LLMProvider {
	case "openai":
		model := c.cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		return callOpenAI(ctx, c.cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := c.cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		return callAnthropic(ctx, c.cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
}

// --- Anthropic ---

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	if openAIResp.Usage != nil {
		log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d",
			len(openAIResp.Choices[0].Message.Content), openAIResp.Usage.PromptTokens, openAIResp.Usage.CompletionTokens)
	}
	return openAIResp.Choices[0].Message.Content, nil
}

// --- Defensive response decoding ---

// decodeModelJSON parses model output into v. It first strips markdown
// fences and tries a direct parse; if that fails it extracts the outermost
// brace-delimited span and parses that. Both failing means the output is
// unusable.
func decodeModelJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: no JSON object in response", ErrOutputUnusable)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnusable, err)
	}
	return nil
}

// stringList reports whether raw is genuinely a JSON array of strings, and
// returns the trimmed non-empty elements if so. Anything else (null, scalar,
// mixed array) is rejected so the caller falls back to its default.
func stringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	var out []string
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// --- Feature classification ---

const classifySystemPrompt = `You classify feature requests for a salon-booking product.
Choose exactly one domain from: Booking, Payments, Calendar, Marketing, Clients, Other.

Also produce:
- feature_name: a short name for the requested feature
- description: a cleaned-up one-paragraph description
- niche: list of service niches this applies to (e.g. ["Hair", "Nails"])
- keywords: list of search keywords

Echo user_id, timestamp, request_id and frequency back exactly as given.

Respond with JSON only (no markdown):
{"feature_name": "...", "description": "...", "domain": "Booking", "niche": ["..."], "keywords": ["..."], "frequency": "...", "user_id": "...", "timestamp": "...", "request_id": "..."}`

type classifierPayload struct {
	FeatureName string          `json:"feature_name"`
	Description string          `json:"description"`
	Domain      string          `json:"domain"`
	Niche       json.RawMessage `json:"niche"`
	Keywords    json.RawMessage `json:"keywords"`
}

func buildClassifyUserPrompt(s SanitizedFields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "feature_description: %s\n", s.FeatureDescription)
	fmt.Fprintf(&b, "usage_frequency: %s\n", s.UsageFrequency)
	fmt.Fprintf(&b, "service_types: %s\n", s.ServiceTypes)
	fmt.Fprintf(&b, "user_interests: %s\n", s.UserInterests)
	fmt.Fprintf(&b, "user_id: %s\n", s.UserID)
	fmt.Fprintf(&b, "timestamp: %s\n", s.Timestamp)
	fmt.Fprintf(&b, "request_id: %s\n", s.RequestID)
	return b.String()
}

// ClassifySubmission invokes the generator with the sanitized fields and
// normalizes whatever comes back. Every output field is independently
// validated and defaulted; frequency, userId, timestamp and requestId are
// always taken from the pre-computed inputs, never from the echo, so a
// misbehaving model cannot corrupt identifiers. Unreachable capability or
// unusable output surfaces as an error wrapping ErrOutputUnusable; the
// orchestrator owns the fatal-vs-fallback decision.
func ClassifySubmission(ctx context.Context, gen Generator, s SanitizedFields) (ClassifiedRecord, error) {
	response, err := gen.Generate(ctx, classifySystemPrompt, buildClassifyUserPrompt(s))
	if err != nil {
		return ClassifiedRecord{}, fmt.Errorf("%w: %v", ErrOutputUnusable, err)
	}

	var payload classifierPayload
	if err := decodeModelJSON(response, &payload); err != nil {
		return ClassifiedRecord{}, err
	}
	return normalizeRecord(payload, s), nil
}

func normalizeRecord(p classifierPayload, s SanitizedFields) ClassifiedRecord {
	rec := ClassifiedRecord{
		FeatureName: strings.TrimSpace(p.FeatureName),
		Description: strings.TrimSpace(p.Description),
		Domain:      strings.TrimSpace(p.Domain),
		Frequency:   s.UsageFrequency,
		UserID:      s.UserID,
		Timestamp:   s.Timestamp,
		RequestID:   s.RequestID,
	}
	if rec.FeatureName == "" {
		rec.FeatureName = fallbackFeatureName
	}
	if rec.Description == "" {
		rec.Description = s.FeatureDescription
	}
	if !ValidDomain(rec.Domain) {
		rec.Domain = DomainOther
	}
	if niche, ok := stringList(p.Niche); ok && len(niche) > 0 {
		rec.Niche = niche
	} else {
		rec.Niche = []string{fallbackNicheLabel}
	}
	// Absent, null, empty and all-blank keyword shapes all normalize to the
	// same non-nil empty list.
	keywords, _ := stringList(p.Keywords)
	if keywords == nil {
		keywords = []string{}
	}
	rec.Keywords = keywords
	return rec
}

// --- Ticket generation ---

const ticketSystemPrompt = `You turn a classified feature request into an engineering ticket.
Write concise free-text sections a developer can act on.

Respond with JSON only (no markdown):
{"title": "...", "problem_statement": "...", "proposed_solution": "...", "acceptance_criteria": ["..."], "qa_notes": "..."}`

// ticketSchema is the full-document contract enforced in strict mode. The
// permissive per-field defaulting above is not acceptable for the ticket
// consumer, which requires a guaranteed-complete document.
const ticketSchema = `{
	"type": "object",
	"required": ["title", "problem_statement", "proposed_solution", "acceptance_criteria", "qa_notes"],
	"properties": {
		"title":               {"type": "string", "minLength": 1},
		"problem_statement":   {"type": "string", "minLength": 1},
		"proposed_solution":   {"type": "string", "minLength": 1},
		"acceptance_criteria": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"qa_notes":            {"type": "string"}
	}
}`

type ticketPayload struct {
	Title              string   `json:"title"`
	ProblemStatement   string   `json:"problem_statement"`
	ProposedSolution   string   `json:"proposed_solution"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	QANotes            string   `json:"qa_notes"`
}

// BuildTicketSpec produces the ticket projection via a dedicated generator
// call. In strict mode the parsed document must pass full schema validation;
// any failure (transport, parse, schema) is a fatal ClassificationError. In
// permissive mode failures yield a deterministic fallback ticket instead.
func BuildTicketSpec(ctx context.Context, gen Generator, rec ClassifiedRecord, strict bool) (TicketSpec, error) {
	userPrompt := fmt.Sprintf("feature_name: %s\ndomain: %s\nniche: %s\ndescription: %s\n",
		rec.FeatureName, rec.Domain, JoinList(rec.Niche), rec.Description)

	response, err := gen.Generate(ctx, ticketSystemPrompt, userPrompt)
	if err != nil {
		if strict {
			return TicketSpec{}, &ClassificationError{Reason: "ticket generation capability unavailable", Err: err}
		}
		log.Printf("ticket generation error request=%s (falling back): %v", rec.RequestID, err)
		return fallbackTicket(rec), nil
	}

	var payload ticketPayload
	if err := decodeModelJSON(response, &payload); err != nil {
		if strict {
			return TicketSpec{}, &ClassificationError{Reason: "ticket output unusable", Err: err}
		}
		log.Printf("ticket parse error request=%s (falling back): %v", rec.RequestID, err)
		return fallbackTicket(rec), nil
	}

	if strict {
		if err := validateTicketDocument(payload); err != nil {
			return TicketSpec{}, &ClassificationError{Reason: "ticket schema validation failed", Err: err}
		}
	}

	return TicketSpec{
		RequestID:          rec.RequestID,
		Title:              payload.Title,
		Domain:             rec.Domain,
		ProblemStatement:   payload.ProblemStatement,
		ProposedSolution:   payload.ProposedSolution,
		AcceptanceCriteria: payload.AcceptanceCriteria,
		QANotes:            payload.QANotes,
	}, nil
}

func validateTicketDocument(p ticketPayload) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(ticketSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("ticket document invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func fallbackTicket(rec ClassifiedRecord) TicketSpec {
	return TicketSpec{
		RequestID:          rec.RequestID,
		Title:              rec.FeatureName,
		Domain:             rec.Domain,
		ProblemStatement:   rec.Description,
		ProposedSolution:   "Needs triage: automatic ticket generation was unavailable.",
		AcceptanceCriteria: []string{"Review and refine this ticket manually"},
		QANotes:            "",
	}
}
