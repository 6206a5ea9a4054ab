// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/parallel-app/parallel/internal/config"
	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrMissingAPIKey is returned by NewGoogle when no API key is
// configured. The pipeline cannot run without a geocoding provider.
var ErrMissingAPIKey = errors.New("geocode: missing API key")

// Google is the Google Geocoding API provider. A client-side rate
// limiter caps outbound calls independently of queue pacing, since
// batch items are resolved concurrently.
type Google struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// NewGoogle creates a Google Geocoding API provider from config.
func NewGoogle(cfg config.GeocodeConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRate := cfg.MaxRatePerSecond
	if maxRate <= 0 {
		maxRate = 10
	}

	return &Google{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(maxRate), maxRate),
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
	}, nil
}

// googleResponse is the wire shape of a Geocoding API reply.
type googleResponse struct {
	Results      []Result `json:"results"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// ReverseGeocode resolves a coordinate via the Geocoding API. It
// blocks on the rate limiter before issuing the request.
func (g *Google) ReverseGeocode(ctx context.Context, lat, lng float64) ([]Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocode rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("latlng", formatCoord(lat)+","+formatCoord(lng))
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	metrics.GeocodeLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read geocode response: %w", err)
	}

	var decoded googleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	switch decoded.Status {
	case "OK":
		metrics.GeocodeLookupsTotal.WithLabelValues("ok").Inc()
		return decoded.Results, nil
	case "ZERO_RESULTS":
		metrics.GeocodeLookupsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	default:
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		logging.Warn().Str("status", decoded.Status).Str("error_message", decoded.ErrorMessage).Msg("geocode provider rejected lookup")
		return nil, fmt.Errorf("geocode status %s: %s", decoded.Status, decoded.ErrorMessage)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
