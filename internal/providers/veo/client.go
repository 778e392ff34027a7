// Package veo adapts the Google Veo long-running operation API as the
// alternative video generation vendor.
package veo

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
	"mediatracker/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("veo: api key is required")

// ErrWebhookUnsupported is returned from ParseWebhook: Veo exposes no push
// notifications, operations are resolved by polling only.
var ErrWebhookUnsupported = errors.New("veo: webhooks not supported")

// Options configures the Veo client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Veo operations API and implements the
// adapter contract for video generation.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
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
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "veo-3.0-generate-001"
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
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) Vendor() domain.Vendor { return domain.VendorVideoGen }

// Start launches a predictLongRunning operation. The operation name is the
// external identifier polled afterwards.
func (c *Client) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	path := "/models/" + c.model + ":predictLongRunning"
	raw, err := c.do(ctx, http.MethodPost, path, input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("veo: decode operation response: %w", err)
	}
	if decoded.Name == "" {
		return nil, errors.New("veo: operation response missing name")
	}
	return &providers.StartResult{ExternalID: decoded.Name}, nil
}

// PollStatus fetches the operation. Veo has no status string vocabulary; the
// done flag plus error/response presence determines the canonical status.
func (c *Client) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	raw, err := c.do(ctx, http.MethodGet, "/"+strings.TrimPrefix(externalID, "/"), nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Done  bool `json:"done"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Response struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn().Err(err).Str("external_id", externalID).Msg("veo: unexpected operation payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	if !decoded.Done {
		return &providers.PollResult{Status: providers.StatusProcessing}, nil
	}
	if decoded.Error != nil {
		return &providers.PollResult{Status: providers.StatusFailed, Detail: decoded.Error.Message}, nil
	}
	samples := decoded.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		// Done without an error or a sample is a shape drift we cannot
		// classify; leave the job processing and log it.
		c.logger.Warn().Str("external_id", externalID).Msg("veo: done operation without samples")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	return &providers.PollResult{Status: providers.StatusCompleted, ResultURL: samples[0].Video.URI}, nil
}

func (c *Client) ParseWebhook([]byte) (string, *providers.PollResult, error) {
	return "", nil, ErrWebhookUnsupported
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("veo: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("veo: build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: %s %s: %v: %w", method, path, err, domain.ErrVendorUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo: read response: %v: %w", err, domain.ErrVendorUnavailable)
	}
	if resp.StatusCode < 300 {
		return raw, nil
	}

	detail := strings.TrimSpace(string(raw))
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		detail = decoded.Error.Message
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("veo: status %d: %s: %w", resp.StatusCode, detail, domain.ErrVendorUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("veo: %s: %w", detail, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("veo: %s: %w", detail, domain.ErrQuotaExceeded)
	default:
		return nil, fmt.Errorf("veo: status %d: %s: %w", resp.StatusCode, detail, domain.ErrInvalidInput)
	}
}

var _ providers.Adapter = (*Client)(nil)
