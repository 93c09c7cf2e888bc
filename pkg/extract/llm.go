package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a chat client. An empty baseURL disables it.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    normalizeBaseURL(baseURL),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has an endpoint to call.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// normalizeBaseURL strips trailing slashes and a trailing
// "/chat/completions" so the path is never doubled.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends a system + user prompt and returns the assistant text.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm: not configured")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("llm: API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm: no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// StripFences removes markdown code fences (```json ... ```) from model
// output before JSON parsing.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// LLMExtractor prefers the language model for both contracts and
// degrades to the keyword path on any error, preserving the keyword
// schema exactly.
type LLMExtractor struct {
	client   *Client
	fallback *KeywordExtractor
	logger   *reporting.Logger
}

// NewLLMExtractor wraps a chat client around the deterministic
// extractor.
func NewLLMExtractor(client *Client, fallback *KeywordExtractor, logger *reporting.Logger) *LLMExtractor {
	return &LLMExtractor{
		client:   client,
		fallback: fallback,
		logger:   logger.WithComponent("extract.llm"),
	}
}

const parseSystemPrompt = "You are a geocoding and logistics parser. " +
	"Your job is to read a user's message, figure out WHERE they are, " +
	"and WHAT supplies they have. " +
	"Respond ONLY with valid JSON, no markdown fences."

type parsedQueryJSON struct {
	OriginDescription string         `json:"origin_description"`
	OriginLat         *float64       `json:"origin_lat"`
	OriginLon         *float64       `json:"origin_lon"`
	Supplies          map[string]int `json:"supplies"`
	Urgency           string         `json:"urgency"`
	Constraints       []string       `json:"constraints"`
	Intent            string         `json:"intent"`
}

// ParseQuery implements Extractor.
func (e *LLMExtractor) ParseQuery(ctx context.Context, text string) (ParsedQuery, error) {
	if !e.client.Enabled() {
		return e.fallback.ParseQuery(ctx, text)
	}

	user := fmt.Sprintf(
		"Read this disaster relief message and extract:\n\n"+
			"- origin_description: the place the user says they ARE or where their supplies are\n"+
			"- origin_lat: the latitude of that place (float). Use your geographic knowledge "+
			"to estimate the coordinates of whatever location is mentioned. "+
			"The disaster area is Western North Carolina.\n"+
			"- origin_lon: the longitude of that place (float)\n"+
			"- supplies: dict of supply_type -> quantity (int). Types: "+
			"water_cases, blankets, medical_kits, food_cases, generators, fuel, "+
			"diapers, baby_formula, pet_supplies, hygiene_kits, cots, medications, "+
			"charging_stations. If a supply is mentioned without a number, use 1.\n"+
			"- urgency: one of 'low', 'medium', 'high', 'critical'\n"+
			"- constraints: list of strings (e.g. 'avoid flooding')\n"+
			"- intent: one of 'route_supplies', 'check_status', 'find_shelter'\n\n"+
			"RULES:\n"+
			"- Do NOT default to any location. If the user does not mention any place, "+
			"set origin_lat and origin_lon to null.\n\n"+
			"Message: %s\n\nJSON:", text)

	raw, err := e.client.Chat(ctx, parseSystemPrompt, user)
	if err != nil {
		e.logger.Warn("llm parse failed, using keyword fallback", "error", err.Error())
		return e.fallback.ParseQuery(ctx, text)
	}

	var data parsedQueryJSON
	if err := json.Unmarshal([]byte(StripFences(raw)), &data); err != nil {
		e.logger.Warn("llm parse returned malformed JSON, using keyword fallback", "error", err.Error())
		return e.fallback.ParseQuery(ctx, text)
	}

	parsed := ParsedQuery{
		Intent:      Intent(orIntent(data.Intent)),
		Supplies:    data.Supplies,
		RawQuery:    text,
		Urgency:     orUrgency(data.Urgency),
		Constraints: data.Constraints,
		ParsedBy:    ParsedByLLM,
	}
	if parsed.Supplies == nil {
		parsed.Supplies = map[string]int{}
	}
	if parsed.Constraints == nil {
		parsed.Constraints = []string{}
	}

	if data.OriginLat != nil && data.OriginLon != nil {
		loc := geo.Location{
			Lat:     *data.OriginLat,
			Lon:     *data.OriginLon,
			Address: data.OriginDescription,
		}
		if loc.Valid() {
			parsed.Origin = &loc
			e.logger.Info("parsed origin",
				"address", loc.Address, "lat", loc.Lat, "lon", loc.Lon, "parsed_by", ParsedByLLM)
		}
	}
	// Last resort: the model found no place, but the gazetteer may
	// still recognise a named landmark or depot in the raw text.
	if parsed.Origin == nil {
		if loc, ok := e.fallback.gazetteer.Match(text); ok {
			parsed.Origin = &loc
			parsed.ParsedBy = ParsedByKeyword
			e.logger.Info("parsed origin",
				"address", loc.Address, "lat", loc.Lat, "lon", loc.Lon, "parsed_by", ParsedByKeyword)
		} else {
			e.logger.Warn("no origin from model or gazetteer", "query", text)
		}
	}

	return parsed, nil
}

func orIntent(s string) string {
	switch Intent(s) {
	case IntentRouteSupplies, IntentCheckStatus, IntentFindShelter:
		return s
	default:
		return string(IntentRouteSupplies)
	}
}

func orUrgency(s string) Urgency {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return Urgency(s)
	default:
		return UrgencyMedium
	}
}

const reconcileSystemPrompt = "You are a disaster relief intelligence analyst. " +
	"Resolve conflicting field reports. Respond ONLY with valid JSON, no markdown fences."

type resolutionJSON struct {
	ResolvedStatus string  `json:"resolved_status"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// ReconcileConflict implements Extractor. The model weighs source
// reliability, recency, and confidence; anything malformed falls back
// to highest-confidence-wins.
func (e *LLMExtractor) ReconcileConflict(ctx context.Context, reports []report.Report, label string) (fusion.Resolution, error) {
	if !e.client.Enabled() || len(reports) < 2 {
		return e.fallback.ReconcileConflict(ctx, reports, label)
	}

	type summary struct {
		Agent       string  `json:"agent"`
		EventType   string  `json:"event_type"`
		Confidence  float64 `json:"confidence"`
		Source      string  `json:"source"`
		Description string  `json:"description"`
		Timestamp   string  `json:"timestamp"`
	}
	summaries := make([]summary, 0, len(reports))
	for _, r := range reports {
		summaries = append(summaries, summary{
			Agent:       r.AgentName,
			EventType:   string(r.Event),
			Confidence:  r.Confidence,
			Source:      string(r.Source),
			Description: r.Description,
			Timestamp:   r.Timestamp.Format(time.RFC3339),
		})
	}
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return e.fallback.ReconcileConflict(ctx, reports, label)
	}

	user := fmt.Sprintf(
		"These reports about '%s' are conflicting:\n%s\n\n"+
			"Analyze source reliability, recency, and confidence to determine the true status.\n"+
			"Respond with JSON:\n"+
			`{"resolved_status": "blocked|damaged|clear", "confidence": 0.0-1.0, "reasoning": "explanation"}`,
		label, encoded)

	raw, err := e.client.Chat(ctx, reconcileSystemPrompt, user)
	if err != nil {
		e.logger.Warn("llm reconciliation failed, using fallback", "error", err.Error())
		return e.fallback.ReconcileConflict(ctx, reports, label)
	}

	var res resolutionJSON
	if err := json.Unmarshal([]byte(StripFences(raw)), &res); err != nil {
		e.logger.Warn("llm reconciliation returned malformed JSON, using fallback", "error", err.Error())
		return e.fallback.ReconcileConflict(ctx, reports, label)
	}

	status := fusion.Status(res.ResolvedStatus)
	switch status {
	case fusion.StatusBlocked, fusion.StatusDamaged, fusion.StatusClear:
	default:
		return e.fallback.ReconcileConflict(ctx, reports, label)
	}

	return fusion.Resolution{
		Status:      status,
		Confidence:  report.ClampConfidence(res.Confidence),
		Reasoning:   res.Reasoning,
		ResolverTag: fusion.ResolverLLM,
	}, nil
}

const briefingSystemPrompt = "You are a disaster relief logistics coordinator " +
	"briefing a field team."

// Summarize implements Summarizer: a concise markdown briefing built
// from the delivery plan facts.
func (e *LLMExtractor) Summarize(ctx context.Context, facts BriefingFacts) (string, error) {
	if !e.client.Enabled() {
		return "", fmt.Errorf("llm: not configured")
	}

	encoded, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("llm: marshal briefing facts: %w", err)
	}

	user := fmt.Sprintf(
		"Generate a concise briefing for a field relief team based on this delivery plan data. "+
			"Use markdown headings and bullet points. Keep it under 300 words. "+
			"Focus on: what data sources informed the plan, key hazards, recommended routes, "+
			"and confidence levels.\n\n%s", encoded)

	raw, err := e.client.Chat(ctx, briefingSystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}
