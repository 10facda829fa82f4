// Package summarizer generates plain-language summaries of notices via
// an external AI chat endpoint.
//
// The provider is treated as an opaque collaborator: it is rate limited
// and occasionally unavailable, so calls are sequential with a minimum
// inter-call delay, and a failure leaves the notice summaryless rather
// than dropping it. The pipeline re-attempts summaryless notices on
// later runs.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Summary is the pair of texts attached to a summarized notice.
type Summary struct {
	// Short is a headline-style title, 8-15 words.
	Short string
	// Long explains the norm in 3-4 plain sentences.
	Long string
}

// Summarizer turns a notice's text into a Summary. Implementations must
// be safe to substitute with a deterministic stub in tests.
type Summarizer interface {
	Summarize(ctx context.Context, n boletin.Notice) (Summary, error)
}

// System prompts, in the register the front end expects.
const (
	shortPrompt = "Eres un asistente que resume documentos oficiales argentinos. " +
		"Responde SOLO con un título descriptivo de 8-15 palabras en español que explique de qué trata la norma."
	longPrompt = "Eres un asistente que resume documentos oficiales argentinos. " +
		"Explica en 3-4 oraciones claras y sencillas en español qué establece esta norma, " +
		"quién la emite, y a quiénes afecta. Usa lenguaje simple."
)

// Config holds provider settings. Endpoint must speak the
// chat-completions JSON shape.
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	Timeout       time.Duration
	CallDelay     time.Duration
	MaxInputChars int
}

// Client implements Summarizer against an HTTP chat endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	lastCall   time.Time
}

// New builds a Client. Endpoint is required; the API key may be empty
// for providers that do not need one.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("summarizer endpoint is required")
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 600
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Summarize produces both summaries for one notice. The provider is
// called twice, sequentially, honoring the configured inter-call delay.
func (c *Client) Summarize(ctx context.Context, n boletin.Notice) (Summary, error) {
	input := buildInput(n, c.cfg.MaxInputChars)

	short, err := c.complete(ctx, n.ReferenceID, shortPrompt, input)
	if err != nil {
		return Summary{}, err
	}
	long, err := c.complete(ctx, n.ReferenceID, longPrompt, input)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Short: CleanResponse(short),
		Long:  CleanResponse(long),
	}
	if sum.Short == "" || sum.Long == "" {
		return Summary{}, &boletin.SummarizeError{
			ReferenceID: n.ReferenceID,
			Err:         fmt.Errorf("provider response was empty after cleanup"),
		}
	}
	return sum, nil
}

// buildInput assembles the provider prompt body the way the front end's
// original pipeline did: title, excerpt, then a slice of the full text.
func buildInput(n boletin.Notice, maxChars int) string {
	text := fmt.Sprintf("%s\n%s\n%s", n.Title, n.Excerpt, n.RawText)
	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return text
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, refID, system, input string) (string, error) {
	c.throttle(ctx)

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: input},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.lastCall = time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return "", &boletin.SummarizeError{
			ReferenceID: refID,
			StatusCode:  resp.StatusCode,
			Err:         fmt.Errorf("provider returned %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: fmt.Errorf("malformed provider response: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &boletin.SummarizeError{ReferenceID: refID, Err: fmt.Errorf("provider response had no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}

// throttle enforces the minimum gap between provider calls.
func (c *Client) throttle(ctx context.Context) {
	if c.cfg.CallDelay <= 0 || c.lastCall.IsZero() {
		return
	}
	wait := c.cfg.CallDelay - time.Since(c.lastCall)
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
