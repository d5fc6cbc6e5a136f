package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cixus/warsim/internal/engine"
	"github.com/cixus/warsim/internal/sitrep"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-haiku-4-5-20251001"

	maxResponseTokens = 500
)

// Client calls the oracle over the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an oracle client. Returns nil if apiKey is empty
// (judgment disabled — callers fall back to the neutral judgment).
func NewClient(apiKey string, timeout time.Duration) *Client {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// message is a chat message.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the API request body.
type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

// response is the API response body.
type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Judge sends (intent, sitrep) to the oracle and parses its verdict.
// Errors here are recoverable by design: callers substitute Neutral().
func (c *Client) Judge(ctx context.Context, in engine.TacticalIntent, report sitrep.Report) (Judgment, error) {
	if !c.Enabled() {
		return Judgment{}, fmt.Errorf("oracle client not configured")
	}

	intentJSON, err := json.Marshal(in)
	if err != nil {
		return Judgment{}, fmt.Errorf("marshal intent: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return Judgment{}, fmt.Errorf("marshal sitrep: %w", err)
	}

	user := fmt.Sprintf("PLAYER INTENT: %s\n\nSITUATION REPORT: %s\n\nReturn your judgment as a single JSON object.",
		intentJSON, reportJSON)

	text, err := c.complete(ctx, personaPrompt, user)
	if err != nil {
		return Judgment{}, err
	}

	return parseJudgment(text)
}

// complete sends one prompt to the oracle and returns the response text.
func (c *Client) complete(ctx context.Context, system, userPrompt string) (string, error) {
	req := request{
		Model:     model,
		MaxTokens: maxResponseTokens,
		System:    system,
		Messages: []message{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("oracle call",
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)

	return apiResp.Content[0].Text, nil
}

// parseJudgment extracts the JSON object from the oracle's reply. The
// oracle sometimes wraps it in prose; take the outermost braces.
func parseJudgment(text string) (Judgment, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return Judgment{}, fmt.Errorf("no JSON object found in response")
	}

	// The persona contract says authority_delta; older oracle builds sent
	// authority_change. Accept either.
	var raw struct {
		AuthorityDelta  *int     `json:"authority_delta"`
		AuthorityChange *int     `json:"authority_change"`
		Commentary      string   `json:"commentary"`
		HiddenEffects   []string `json:"hidden_effects"`
		Confidence      float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Judgment{}, fmt.Errorf("parse judgment: %w", err)
	}

	j := Judgment{
		Commentary:    raw.Commentary,
		HiddenEffects: raw.HiddenEffects,
		Confidence:    raw.Confidence,
	}
	switch {
	case raw.AuthorityDelta != nil:
		j.AuthorityDelta = *raw.AuthorityDelta
	case raw.AuthorityChange != nil:
		j.AuthorityDelta = *raw.AuthorityChange
	}

	if j.Commentary == "" {
		return Judgment{}, fmt.Errorf("judgment missing commentary")
	}

	return j, nil
}
