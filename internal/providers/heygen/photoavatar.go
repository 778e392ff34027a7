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

var photoAvatarStatusTable = map[string]providers.Status{
	"pending":     providers.StatusProcessing,
	"in_progress": providers.StatusProcessing,
	"processing":  providers.StatusProcessing,
	"success":     providers.StatusCompleted,
	"completed":   providers.StatusCompleted,
	"failed":      providers.StatusFailed,
}

// PhotoAvatarAdapter drives HeyGen photo avatar generation.
type PhotoAvatarAdapter struct {
	client *Client
}

func NewPhotoAvatarAdapter(client *Client) *PhotoAvatarAdapter {
	return &PhotoAvatarAdapter{client: client}
}

func (a *PhotoAvatarAdapter) Vendor() domain.Vendor { return domain.VendorPhotoAvatar }

func (a *PhotoAvatarAdapter) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	raw, err := a.client.do(ctx, http.MethodPost, "/v2/photo_avatar/photo/generate", input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			GenerationID string `json:"generation_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("heygen: decode photo avatar response: %w", err)
	}
	if decoded.Data.GenerationID == "" {
		return nil, errors.New("heygen: photo avatar response missing generation_id")
	}
	return &providers.StartResult{ExternalID: decoded.Data.GenerationID}, nil
}

func (a *PhotoAvatarAdapter) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	path := "/v2/photo_avatar/generation/" + url.PathEscape(externalID)
	raw, err := a.client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Status       string   `json:"status"`
			ImageURLList []string `json:"image_url_list"`
			Msg          string   `json:"msg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		a.client.logger.Warn().Err(err).Str("external_id", externalID).Msg("heygen: unexpected photo avatar payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	res := &providers.PollResult{
		Status: providers.Normalize(photoAvatarStatusTable, decoded.Data.Status),
		Detail: decoded.Data.Msg,
	}
	if len(decoded.Data.ImageURLList) > 0 {
		res.ResultURL = decoded.Data.ImageURLList[0]
	}
	return res, nil
}

func (a *PhotoAvatarAdapter) ParseWebhook(payload []byte) (string, *providers.PollResult, error) {
	var decoded struct {
		EventType string `json:"event_type"`
		EventData struct {
			GenerationID string   `json:"generation_id"`
			ImageURLList []string `json:"image_url_list"`
			Msg          string   `json:"msg"`
		} `json:"event_data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil, fmt.Errorf("heygen: decode webhook: %w", err)
	}
	if decoded.EventData.GenerationID == "" {
		return "", nil, errors.New("heygen: webhook missing generation_id")
	}
	res := &providers.PollResult{Status: providers.StatusUnknown}
	switch decoded.EventType {
	case "photo_avatar.success":
		res.Status = providers.StatusCompleted
		if len(decoded.EventData.ImageURLList) > 0 {
			res.ResultURL = decoded.EventData.ImageURLList[0]
		}
	case "photo_avatar.fail":
		res.Status = providers.StatusFailed
		res.Detail = decoded.EventData.Msg
	}
	return decoded.EventData.GenerationID, res, nil
}

var _ providers.Adapter = (*PhotoAvatarAdapter)(nil)
