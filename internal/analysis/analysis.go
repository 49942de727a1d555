// package analysis asks a generative text service for a short technical
// description of a track. Strictly best-effort: every failure path yields a
// fixed fallback string, never an error.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/shared"
)

// Fallback is returned when the service fails or returns nothing usable.
const Fallback = "Could not generate analysis."

// missingKey is returned without a network call when no API key is set.
const missingKey = "AI insights unavailable (missing API key)"

// Analyzer produces a one-line description for a track title.
type Analyzer interface {
	Analyze(ctx context.Context, title string) string
}

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates an analysis client from config values.
func NewClient(cfg shared.AnalysisConfig, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

var _ Analyzer = (*Client)(nil)

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze returns a concise one-sentence style analysis for the title.
func (c *Client) Analyze(ctx context.Context, title string) string {
	if c.apiKey == "" {
		return missingKey
	}

	prompt := fmt.Sprintf(
		"Provide a concise, technical 1-sentence analysis of the likely musical style, key instrumentation, and production era for a track titled %q. Do not use poetic metaphors.",
		title,
	)

	var req generateRequest
	req.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Parts = append(req.Contents[0].Parts, struct {
		Text string `json:"text"`
	}{Text: prompt})

	payload, err := json.Marshal(req)
	if err != nil {
		return Fallback
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Fallback
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("analysis request failed", "err", err)
		return Fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("analysis request rejected", "status", resp.Status)
		return Fallback
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("analysis response unreadable", "err", err)
		return Fallback
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Fallback
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return Fallback
	}
	return text
}
