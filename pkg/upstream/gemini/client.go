// Package gemini calls the Gemini generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aura-edu/aura/pkg/upstream"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxErrorBody bounds how much of an error response is read for diagnostics.
const maxErrorBody = 64 << 10

// Client is a Gemini text-generation client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client. An empty baseURL uses DefaultBaseURL; timeout bounds
// each HTTP exchange.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate implements upstream.Client.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal gemini request")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", upstream.NewError(upstream.KindBadRequest, 0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", classifyStatus(resp.StatusCode, raw)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", upstream.NewError(upstream.KindUnknown, resp.StatusCode, "decode response", errors.Wrap(err, "decode gemini response"))
	}
	return extractText(out)
}

func extractText(out generateResponse) (string, error) {
	if len(out.Candidates) == 0 {
		reason := "no candidates returned"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + out.PromptFeedback.BlockReason
		}
		return "", upstream.NewError(upstream.KindBadRequest, http.StatusOK, reason, nil)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		// Caller gave up; the gateway decides what that means.
		return errors.Wrap(ctx.Err(), "gemini request")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return upstream.NewError(upstream.KindTimeout, 0, "", errors.Wrap(err, "gemini request"))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return upstream.NewError(upstream.KindTimeout, 0, "", errors.Wrap(err, "gemini request"))
	}
	return upstream.NewError(upstream.KindNetwork, 0, "", errors.Wrap(err, "gemini request"))
}

func classifyStatus(status int, raw []byte) error {
	var ae apiError
	msg := strings.TrimSpace(string(raw))
	apiStatus := ""
	if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
		apiStatus = ae.Error.Status
	}

	var kind upstream.Kind
	switch {
	case status == http.StatusServiceUnavailable,
		strings.Contains(strings.ToLower(apiStatus), "unavail"),
		strings.Contains(strings.ToLower(msg), "overloaded"):
		kind = upstream.KindUnavailable
	case status == http.StatusTooManyRequests:
		kind = upstream.KindRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = upstream.KindAuth
	case status == http.StatusGatewayTimeout:
		kind = upstream.KindTimeout
	case status >= 500:
		kind = upstream.KindServer
	case status >= 400:
		kind = upstream.KindBadRequest
	default:
		kind = upstream.KindUnknown
	}
	return upstream.NewError(kind, status, msg, nil)
}
