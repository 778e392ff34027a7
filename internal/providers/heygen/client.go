// Package heygen adapts the HeyGen API for talking-head video, photo avatar
// and voice clone jobs.
package heygen

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

	"github.com/rs/zerolog"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("heygen: api key is required")

// Options configures the HeyGen client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the HeyGen API. It is shared by the video,
// photo avatar and voice clone adapters.
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
		baseURL = "https://api.heygen.com"
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

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do issues one JSON request and maps transport and HTTP failures onto the
// domain error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("heygen: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("heygen: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("heygen: %s %s: %v: %w", method, path, err, domain.ErrVendorUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("heygen: read response: %v: %w", err, domain.ErrVendorUnavailable)
	}
	if resp.StatusCode < 300 {
		return raw, nil
	}

	detail := strings.TrimSpace(string(raw))
	var decoded struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		detail = decoded.Error.Message
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("heygen: status %d: %s: %w", resp.StatusCode, detail, domain.ErrVendorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("heygen: %s: %w", detail, domain.ErrNotFound)
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("heygen: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return nil, fmt.Errorf("heygen: status %d: %s: %w", resp.StatusCode, detail, domain.ErrInvalidInput)
	}
}
