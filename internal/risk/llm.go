package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kmadera/payfriend/internal/circuitbreaker"
	"github.com/kmadera/payfriend/internal/metrics"
	"github.com/kmadera/payfriend/internal/retry"
)

// Breaker keys for the two upstream calls.
const (
	breakerKeyScorer    = "risk-scorer"
	breakerKeyExplainer = "fraud-explainer"
)

const scorerSystemPrompt = `You are a financial fraud detection expert. Analyze the transaction based on the provided details and the sender's history. Provide a risk score from 0 to 100 and a brief reason.

Consider these factors:
- Is the transaction amount significantly higher than the sender's average?
- Is the transaction description suspicious (e.g., "urgent", "verify account", "unlock")?
- Does the sender's history show a sudden increase in transaction frequency or amount?

Respond with a JSON object: {"riskScore": <0-100>, "riskReason": "<brief explanation>"}`

const explainerSystemPrompt = `You are a financial fraud analyst. A user has reported a transaction as fraudulent. Analyze the transaction details together with the user's report and explain in one or two sentences why the transaction does or does not look fraudulent.

Respond with a JSON object: {"reason": "<explanation>"}`

// Client calls an OpenAI-compatible chat-completions endpoint for risk
// scoring and fraud explanation. All calls have a bounded timeout, are
// retried with backoff, and sit behind a circuit breaker.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

// ClientConfig configures the LLM client.
type ClientConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates an LLM-backed scorer/explainer.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		breaker:    circuitbreaker.New(5, 30*time.Second),
		logger:     logger,
	}
}

// Score implements Scorer.
func (c *Client) Score(ctx context.Context, transactionSummary, senderHistorySummary string) (*Assessment, error) {
	user := fmt.Sprintf("Transaction Details: %s\nSender History: %s", transactionSummary, senderHistorySummary)

	timer := time.Now()
	raw, err := c.complete(ctx, breakerKeyScorer, scorerSystemPrompt, user)
	metrics.RiskScorerDuration.Observe(time.Since(timer).Seconds())
	if err != nil {
		return nil, err
	}

	var a Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	a.Score = clampScore(a.Score)
	return &a, nil
}

// Explain implements Explainer.
func (c *Client) Explain(ctx context.Context, transactionSummary, userReport string) (*Explanation, error) {
	user := fmt.Sprintf("Transaction Details: %s\nUser Report: %s", transactionSummary, userReport)

	raw, err := c.complete(ctx, breakerKeyExplainer, explainerSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var e Explanation
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if e.Reason == "" {
		return nil, ErrBadResponse
	}
	return &e, nil
}

// Wire types for the chat-completions API.

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs one guarded chat completion and returns the raw
// content of the first choice.
func (c *Client) complete(ctx context.Context, breakerKey, system, user string) ([]byte, error) {
	if !c.breaker.Allow(breakerKey) {
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var content []byte
	err = retry.Do(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			// fall through to parse
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
		default:
			return retry.Permanent(fmt.Errorf("%w: upstream status %d", ErrBadResponse, resp.StatusCode))
		}

		var parsed chatResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", ErrBadResponse, err))
		}
		if len(parsed.Choices) == 0 {
			return retry.Permanent(fmt.Errorf("%w: no choices", ErrBadResponse))
		}
		content = []byte(parsed.Choices[0].Message.Content)
		return nil
	})

	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		c.logger.Warn("risk upstream call failed", "key", breakerKey, "error", err)
		return nil, err
	}

	c.breaker.RecordSuccess(breakerKey)
	return content, nil
}
