package tracker

import (
	"fmt"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/providers"
	"mediatracker/internal/providers/happyscribe"
	"mediatracker/internal/providers/heygen"
	"mediatracker/internal/providers/runway"
	"mediatracker/internal/providers/veo"
)

// BuildRegistry wires one adapter per vendor tag from the configured
// credentials. Vendors without credentials are left unbound; submitting to
// them is rejected as invalid input rather than failing at boot.
func BuildRegistry(cfg *infra.Config, logger infra.Logger) (providers.Registry, error) {
	registry := providers.Registry{}

	if cfg.HeyGenAPIKey != "" {
		client, err := heygen.NewClient(heygen.Options{
			APIKey:         cfg.HeyGenAPIKey,
			BaseURL:        cfg.HeyGenBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.VendorHTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("heygen client: %w", err)
		}
		registry[domain.VendorPhotoAvatar] = heygen.NewPhotoAvatarAdapter(client)
		registry[domain.VendorVoiceClone] = heygen.NewVoiceCloneAdapter(client)
		if cfg.VideoProvider == "heygen" {
			registry[domain.VendorVideoGen] = heygen.NewVideoAdapter(client)
		}
	}

	if cfg.VideoProvider == "veo" && cfg.VeoAPIKey != "" {
		client, err := veo.NewClient(veo.Options{
			APIKey:         cfg.VeoAPIKey,
			BaseURL:        cfg.VeoBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.VendorHTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("veo client: %w", err)
		}
		registry[domain.VendorVideoGen] = client
	}

	if cfg.RunwayAPIKey != "" {
		client, err := runway.NewClient(runway.Options{
			APIKey:         cfg.RunwayAPIKey,
			BaseURL:        cfg.RunwayBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.VendorHTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("runway client: %w", err)
		}
		registry[domain.VendorImageGen] = client
	}

	if cfg.HappyScribeAPIKey != "" {
		client, err := happyscribe.NewClient(happyscribe.Options{
			APIKey:         cfg.HappyScribeAPIKey,
			BaseURL:        cfg.HappyScribeBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.VendorHTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("happyscribe client: %w", err)
		}
		registry[domain.VendorTranslation] = client
	}

	for _, vendor := range domain.Vendors {
		if _, ok := registry[vendor]; !ok {
			logger.Warn().Str("vendor", string(vendor)).Msg("vendor not configured, submissions will be rejected")
		}
	}
	return registry, nil
}
