package heygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"mediatracker/internal/domain"
	"mediatracker/internal/providers"
)

// videoStatusTable maps HeyGen's raw video status vocabulary onto the
// canonical values. Anything unlisted normalizes to unknown.
var videoStatusTable = map[string]providers.Status{
	"pending":    providers.StatusProcessing,
	"waiting":    providers.StatusProcessing,
	"processing": providers.StatusProcessing,
	"completed":  providers.StatusCompleted,
	"success":    providers.StatusCompleted,
	"failed":     providers.StatusFailed,
	"error":      providers.StatusFailed,
}

// VideoAdapter drives HeyGen avatar video generation.
type VideoAdapter struct {
	client *Client
}

// NewVideoAdapter binds the adapter to a shared client.
func NewVideoAdapter(client *Client) *VideoAdapter {
	return &VideoAdapter{client: client}
}

func (a *VideoAdapter) Vendor() domain.Vendor { return domain.VendorVideoGen }

// Start submits a video generation request. The input payload is forwarded
// verbatim; HeyGen validates the script/avatar fields itself.
func (a *VideoAdapter) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	raw, err := a.client.do(ctx, http.MethodPost, "/v2/video/generate", input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("heygen: decode generate response: %w", err)
	}
	if decoded.Data.VideoID == "" {
		return nil, errors.New("heygen: generate response missing video_id")
	}
	return &providers.StartResult{ExternalID: decoded.Data.VideoID}, nil
}

// PollStatus fetches the current video status and normalizes it.
func (a *VideoAdapter) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	path := "/v1/video_status.get?video_id=" + url.QueryEscape(externalID)
	raw, err := a.client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Status   string `json:"status"`
			VideoURL string `json:"video_url"`
			Error    struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Unexpected shapes are tolerated: the job stays processing.
		a.client.logger.Warn().Err(err).Str("external_id", externalID).Msg("heygen: unexpected video status payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	return &providers.PollResult{
		Status:    providers.Normalize(videoStatusTable, decoded.Data.Status),
		ResultURL: decoded.Data.VideoURL,
		Detail:    decoded.Data.Error.Message,
	}, nil
}

// ParseWebhook normalizes a HeyGen avatar_video.* event payload.
func (a *VideoAdapter) ParseWebhook(payload []byte) (string, *providers.PollResult, error) {
	var decoded struct {
		EventType string `json:"event_type"`
		EventData struct {
			VideoID string `json:"video_id"`
			URL     string `json:"url"`
			Msg     string `json:"msg"`
		} `json:"event_data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil, fmt.Errorf("heygen: decode webhook: %w", err)
	}
	if decoded.EventData.VideoID == "" {
		return "", nil, errors.New("heygen: webhook missing video_id")
	}
	res := &providers.PollResult{Status: providers.StatusUnknown}
	switch decoded.EventType {
	case "avatar_video.success":
		res.Status = providers.StatusCompleted
		res.ResultURL = decoded.EventData.URL
	case "avatar_video.fail":
		res.Status = providers.StatusFailed
		res.Detail = decoded.EventData.Msg
	}
	return decoded.EventData.VideoID, res, nil
}

var _ providers.Adapter = (*VideoAdapter)(nil)
