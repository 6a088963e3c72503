package main

import (
	"fmt"
	"log/slog"

	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/gateway"
	"github.com/aura-edu/aura/pkg/telemetry"
	"github.com/aura-edu/aura/pkg/upstream/gemini"
)

// newGateway builds the gateway described by cfg. The recorder is nil when
// telemetry is disabled; callers close it otherwise.
func newGateway(cfg *config.Config, logger *slog.Logger) (*gateway.Gateway, *telemetry.Recorder, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, nil, fmt.Errorf("gemini api key is not set (gemini.api_key or GEMINI_API_KEY)")
	}

	client := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Timeout)
	opts := append(gateway.FromConfig(cfg.Gateway), gateway.WithLogger(logger))

	var rec *telemetry.Recorder
	if cfg.Telemetry.Enabled {
		var err error
		rec, err = telemetry.New(cfg.Telemetry.DBPath, cfg.Telemetry.RetentionDays, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init telemetry: %w", err)
		}
		opts = append(opts, gateway.WithObserver(rec))
	}

	return gateway.New(client, opts...), rec, nil
}
