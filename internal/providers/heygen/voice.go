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

var voiceStatusTable = map[string]providers.Status{
	"pending":  providers.StatusProcessing,
	"training": providers.StatusProcessing,
	"ready":    providers.StatusCompleted,
	"success":  providers.StatusCompleted,
	"failed":   providers.StatusFailed,
}

// VoiceCloneAdapter drives HeyGen voice cloning.
type VoiceCloneAdapter struct {
	client *Client
}

func NewVoiceCloneAdapter(client *Client) *VoiceCloneAdapter {
	return &VoiceCloneAdapter{client: client}
}

func (a *VoiceCloneAdapter) Vendor() domain.Vendor { return domain.VendorVoiceClone }

func (a *VoiceCloneAdapter) Start(ctx context.Context, input json.RawMessage) (*providers.StartResult, error) {
	raw, err := a.client.do(ctx, http.MethodPost, "/v1/voice_cloning.create", input)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			VoiceID string `json:"voice_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("heygen: decode voice cloning response: %w", err)
	}
	if decoded.Data.VoiceID == "" {
		return nil, errors.New("heygen: voice cloning response missing voice_id")
	}
	return &providers.StartResult{ExternalID: decoded.Data.VoiceID}, nil
}

func (a *VoiceCloneAdapter) PollStatus(ctx context.Context, externalID string) (*providers.PollResult, error) {
	path := "/v1/voice_cloning.get?voice_id=" + url.QueryEscape(externalID)
	raw, err := a.client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Data struct {
			Status     string `json:"status"`
			PreviewURL string `json:"preview_url"`
			Msg        string `json:"msg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		a.client.logger.Warn().Err(err).Str("external_id", externalID).Msg("heygen: unexpected voice cloning payload")
		return &providers.PollResult{Status: providers.StatusUnknown}, nil
	}
	return &providers.PollResult{
		Status:    providers.Normalize(voiceStatusTable, decoded.Data.Status),
		ResultURL: decoded.Data.PreviewURL,
		Detail:    decoded.Data.Msg,
	}, nil
}

func (a *VoiceCloneAdapter) ParseWebhook(payload []byte) (string, *providers.PollResult, error) {
	var decoded struct {
		EventType string `json:"event_type"`
		EventData struct {
			VoiceID    string `json:"voice_id"`
			PreviewURL string `json:"preview_url"`
			Msg        string `json:"msg"`
		} `json:"event_data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil, fmt.Errorf("heygen: decode webhook: %w", err)
	}
	if decoded.EventData.VoiceID == "" {
		return "", nil, errors.New("heygen: webhook missing voice_id")
	}
	res := &providers.PollResult{Status: providers.StatusUnknown}
	switch decoded.EventType {
	case "voice_clone.success":
		res.Status = providers.StatusCompleted
		res.ResultURL = decoded.EventData.PreviewURL
	case "voice_clone.fail":
		res.Status = providers.StatusFailed
		res.Detail = decoded.EventData.Msg
	}
	return decoded.EventData.VoiceID, res, nil
}

var _ providers.Adapter = (*VoiceCloneAdapter)(nil)
