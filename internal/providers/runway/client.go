// Package runway adapts the RunwayML task API for image generation jobs.
package runway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runway: api key is required")

const apiVersion = "2024-11-06"

// statusTable maps RunwayML's task status vocabulary onto the canonical values.
var statusTable = map[string]providers.Status{
	"pending":   providers.StatusProcessing,
	"throttled": providers.StatusProcessing,
	"running":   providers.StatusProcessing,
	"succeeded": providers.StatusCompleted,
	"failed":    providers.StatusFailed,
	"cancelled": providers.StatusFailed,
}

// Options configures the RunwayML client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the RunwayML API and implements the adapter
// contract for image generation.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dev.runwayml.com/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) Vendor() domain.Vendor { return domain.VendorImageGen }

// Start submits a text_to_image task.
func (c *Client) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/text_to_image", input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("runway: decode task response: %w", err)
	}
	if decoded.ID == "" {
		return nil, errors.New("runway: task response missing id")
	}
	return &providers.StartResult{ExternalID: decoded.ID}, nil
}

// PollStatus fetches a task and normalizes its status.
func (c *Client) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	raw, err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(externalID), nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Status  string   `json:"status"`
		Output  []string `json:"output"`
		Failure string   `json:"failure"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn().Err(err).Str("external_id", externalID).Msg("runway: unexpected task payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	res := &providers.PollResult{
		Status: providers.Normalize(statusTable, decoded.Status),
		Detail: decoded.Failure,
	}
	if len(decoded.Output) > 0 {
		res.ResultURL = decoded.Output[0]
	}
	return res, nil
}

// ParseWebhook normalizes a task lifecycle callback. The payload shape
// matches the task resource itself.
func (c *Client) ParseWebhook(payload []byte) (string, *providers.PollResult, error) {
	var decoded struct {
		ID      string   `json:"id"`
		Status  string   `json:"status"`
		Output  []string `json:"output"`
		Failure string   `json:"failure"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil, fmt.Errorf("runway: decode webhook: %w", err)
	}
	if decoded.ID == "" {
		return "", nil, errors.New("runway: webhook missing task id")
	}
	res := &providers.PollResult{
		Status: providers.Normalize(statusTable, decoded.Status),
		Detail: decoded.Failure,
	}
	if len(decoded.Output) > 0 {
		res.ResultURL = decoded.Output[0]
	}
	return decoded.ID, res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("runway: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("runway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runway: %s %s: %v: %w", method, path, err, domain.ErrVendorUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runway: read response: %v: %w", err, domain.ErrVendorUnavailable)
	}
	if resp.StatusCode < 300 {
		return raw, nil
	}

	detail := strings.TrimSpace(string(raw))
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != "" {
		detail = decoded.Error
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("runway: status %d: %s: %w", resp.StatusCode, detail, domain.ErrVendorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("runway: %s: %w", detail, domain.ErrNotFound)
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("runway: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return nil, fmt.Errorf("runway: status %d: %s: %w", resp.StatusCode, detail, domain.ErrInvalidInput)
	}
}

var _ providers.Adapter = (*Client)(nil)
