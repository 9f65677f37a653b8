// Package openai implements the bot services against the OpenAI HTTP API: vision captions,
// chat-based clue obfuscation and embedding similarity.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dixit-toolbox/internal/services"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.openai.com/v1"

var ErrNoAPIKey = errors.New("OpenAI API key is not configured")

type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	VisionModel    string
	EmbeddingModel string
	Timeout        time.Duration
	BannedPhrases  []string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logrus.FieldLogger
}

func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// Suite exposes the client as the three bot services. captions feeds the scorer, so pass the
// cached captioner to avoid describing a card twice.
func (c *Client) Suite(captions services.Captioner) services.Suite {
	if captions == nil {
		captions = c
	}
	return services.Suite{
		Captioner:  c,
		Scorer:     &Scorer{client: c, captions: captions},
		Obfuscator: c,
	}
}

// post sends payload to the endpoint and decodes the response body into out. Rate limits and
// server errors stay retryable; other client errors are permanent.
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Permanent(fmt.Errorf("failed to build OpenAI request: %w", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return services.Permanent(fmt.Errorf("failed to build OpenAI request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach OpenAI: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read OpenAI response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
		if msg := parseErrorMessage(raw); msg != "" {
			err = fmt.Errorf("OpenAI request failed (%d): %s", resp.StatusCode, msg)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return err
		}
		return services.Permanent(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return services.Permanent(fmt.Errorf("failed to parse OpenAI response: %w", err))
	}
	return nil
}

func parseErrorMessage(body []byte) string {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return ""
	}
	return strings.TrimSpace(parsed.Error.Message)
}
