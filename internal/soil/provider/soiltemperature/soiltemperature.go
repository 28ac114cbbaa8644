// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package soiltemperature implements the soil.Provider for the soiltemperature.app API.
package soiltemperature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/wneessen/soil-temperature/internal/http"
	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/vartype"
)

const (
	name           = "soiltemperature.app"
	DefaultBaseURL = "https://soiltemperature.app/api"
	DefaultTimeout = time.Second * 30
	timelinePath   = "/weatherTimeline"
	referer        = "https://soiltemperature.app/"

	fieldCurrent  = "mostRecentReading"
	fieldTimeline = "timeline"
	fieldTime     = "time"
)

var (
	// The API is built for its own web frontend and expects to be called from there
	requestHeaders = map[string]string{
		"Referer": referer,
		"Origin":  "https://soiltemperature.app",
	}

	errNull = errors.New("value is null")
)

type SoilTemperature struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *logger.Logger
}

// Option configures the provider.
type Option func(*SoilTemperature)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *SoilTemperature) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *SoilTemperature) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func New(http *http.Client, log *logger.Logger, opts ...Option) (*SoilTemperature, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	provider := &SoilTemperature{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    http,
		log:     log,
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider, nil
}

func (s *SoilTemperature) Name() string {
	return name
}

// Fetch retrieves the most recent reading and the timeline for the given coordinates. Every
// returned error is a *soil.UpdateError.
func (s *SoilTemperature) Fetch(ctx context.Context, coords soil.Coordinates) (*soil.Payload, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(coords.Lon, 'f', -1, 64))

	response, err := s.http.GetWithTimeout(ctx, s.baseURL+timelinePath, query, requestHeaders, s.timeout)
	if err != nil {
		return nil, soil.NewUpdateError(soil.ErrTransport,
			fmt.Errorf("failed to retrieve soil data from %s API: %w", name, err))
	}
	if !response.OK() {
		return nil, soil.NewUpdateError(soil.ErrTransport,
			fmt.Errorf("%s API returned non-positive response code: %d", name, response.StatusCode))
	}
	s.log.Debug("received soil data", slog.Int("bytes", len(response.Body)),
		slog.String("content_type", response.Header.Get("Content-Type")))

	// The declared content type is not reliable, so the body is always parsed as JSON text
	return parse(response.Body)
}

func parse(body []byte) (*soil.Payload, error) {
	if !json.Valid(body) {
		return nil, soil.NewUpdateError(soil.ErrParse, errors.New("response body is not valid JSON")).
			WithBody(body)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, soil.NewUpdateError(soil.ErrShape, fmt.Errorf("response is not a JSON object: %w", err))
	}
	rawCurrent, ok := fields[fieldCurrent]
	if !ok {
		return nil, soil.NewUpdateError(soil.ErrShape, fmt.Errorf("response lacks %q", fieldCurrent))
	}
	rawTimeline, ok := fields[fieldTimeline]
	if !ok {
		return nil, soil.NewUpdateError(soil.ErrShape, fmt.Errorf("response lacks %q", fieldTimeline))
	}

	current, err := parseObject(rawCurrent)
	if err != nil {
		return nil, soil.NewUpdateError(soil.ErrShape, fmt.Errorf("invalid %q: %w", fieldCurrent, err))
	}
	timeline, err := parseTimeline(rawTimeline)
	if err != nil {
		return nil, soil.NewUpdateError(soil.ErrShape, fmt.Errorf("invalid %q: %w", fieldTimeline, err))
	}

	return &soil.Payload{
		Current:  parseReading(current),
		Timeline: timeline,
	}, nil
}

func parseTimeline(raw json.RawMessage) (soil.Timeline, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	timeline := make(soil.Timeline, 0, len(entries))
	for _, entry := range entries {
		fields, err := parseObject(entry)
		if err != nil {
			continue
		}
		// Entries without a usable timestamp can never match a calendar day
		stamp := parseNumber(fields[fieldTime])
		if !stamp.IsSet() {
			continue
		}
		timeline = append(timeline, soil.Sample{
			Time:   epochToTime(stamp.Value()),
			Values: parseReading(fields),
		})
	}
	return timeline, nil
}

func parseObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseReading extracts the tracked keys. Values that are not numbers are treated as null.
func parseReading(fields map[string]json.RawMessage) soil.Reading {
	reading := make(soil.Reading, len(soil.TemperatureKeys)+len(soil.MoistureKeys))
	for _, key := range soil.Keys() {
		reading[key] = parseNumber(fields[string(key)])
	}
	return reading
}

func parseNumber(raw json.RawMessage) vartype.VarFloat64 {
	if isNull(raw) {
		return vartype.Null[float64]()
	}
	var val float64
	if err := json.Unmarshal(raw, &val); err != nil {
		return vartype.Null[float64]()
	}
	return vartype.NewVariable(val)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func epochToTime(epoch float64) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
