// Package happyscribe adapts the Happy Scribe task API for translation jobs.
package happyscribe

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
var ErrMissingAPIKey = errors.New("happyscribe: api key is required")

// statusTable maps Happy Scribe's task state vocabulary onto the canonical
// values. "expired" means the downloadable artifact lapsed before we fetched
// it, which is a failure from the job's point of view.
var statusTable = map[string]providers.Status{
	"pending":    providers.StatusProcessing,
	"processing": providers.StatusProcessing,
	"ready":      providers.StatusCompleted,
	"done":       providers.StatusCompleted,
	"failed":     providers.StatusFailed,
	"expired":    providers.StatusFailed,
}

// Options configures the Happy Scribe client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Happy Scribe API and implements the
// adapter contract for translation.
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
		baseURL = "https://www.happyscribe.com/api/v1"
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

func (c *Client) Vendor() domain.Vendor { return domain.VendorTranslation }

// Start creates a translation task.
func (c *Client) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/task/translation", input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("happyscribe: decode task response: %w", err)
	}
	if decoded.ID == "" {
		return nil, errors.New("happyscribe: task response missing id")
	}
	return &providers.StartResult{ExternalID: decoded.ID}, nil
}

// PollStatus fetches a translation task and normalizes its state.
func (c *Client) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	raw, err := c.do(ctx, http.MethodGet, "/task/translation/"+url.PathEscape(externalID), nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		State        string `json:"state"`
		DownloadLink string `json:"download_link"`
		FailureCause string `json:"failure_cause"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn().Err(err).Str("external_id", externalID).Msg("happyscribe: unexpected task payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	return &providers.PollResult{
		Status:    providers.Normalize(statusTable, decoded.State),
		ResultURL: decoded.DownloadLink,
		Detail:    decoded.FailureCause,
	}, nil
}

// ParseWebhook normalizes a task state callback.
func (c *Client) ParseWebhook(payload []byte) (string, *providers.PollResult, error) {
	var decoded struct {
		ID           string `json:"id"`
		State        string `json:"state"`
		DownloadLink string `json:"download_link"`
		FailureCause string `json:"failure_cause"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil, fmt.Errorf("happyscribe: decode webhook: %w", err)
	}
	if decoded.ID == "" {
		return "", nil, errors.New("happyscribe: webhook missing task id")
	}
	return decoded.ID, &providers.PollResult{
		Status:    providers.Normalize(statusTable, decoded.State),
		ResultURL: decoded.DownloadLink,
		Detail:    decoded.FailureCause,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("happyscribe: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("happyscribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("happyscribe: %s %s: %v: %w", method, path, err, domain.ErrVendorUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("happyscribe: read response: %v: %w", err, domain.ErrVendorUnavailable)
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
		return nil, fmt.Errorf("happyscribe: status %d: %s: %w", resp.StatusCode, detail, domain.ErrVendorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("happyscribe: %s: %w", detail, domain.ErrNotFound)
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("happyscribe: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return nil, fmt.Errorf("happyscribe: status %d: %s: %w", resp.StatusCode, detail, domain.ErrInvalidInput)
	}
}

var _ providers.Adapter = (*Client)(nil)
