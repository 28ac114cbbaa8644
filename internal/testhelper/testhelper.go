// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for the package tests.
package testhelper

import (
	"io"
	stdhttp "net/http"
	"os"
	"strings"
	"testing"
)

const (
	// TestOnlineAPIURL is a real endpoint used by the opt-in integration tests.
	TestOnlineAPIURL = "https://soiltemperature.app/api/weatherTimeline?lat=40.7128&lng=-74.0060"

	integrationEnv = "PERFORM_INTEGRATION_TESTS"
)

// MockRoundTripper replaces the HTTP transport with a function.
type MockRoundTripper struct {
	Fn func(*stdhttp.Request) (*stdhttp.Response, error)
}

func (m MockRoundTripper) RoundTrip(req *stdhttp.Request) (*stdhttp.Response, error) {
	return m.Fn(req)
}

// PerformIntegrationTests skips the calling test unless integration tests are enabled.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if os.Getenv(integrationEnv) == "" {
		t.Skipf("skipping integration test, set %s to enable", integrationEnv)
	}
}

// StringResponse returns a RoundTrip function that answers every request with the given status,
// content type and body.
func StringResponse(status int, contentType, body string) func(*stdhttp.Request) (*stdhttp.Response, error) {
	return func(req *stdhttp.Request) (*stdhttp.Response, error) {
		header := make(stdhttp.Header)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		return &stdhttp.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     header,
			Request:    req,
		}, nil
	}
}

// FileResponse returns a RoundTrip function that answers every request with the content of the
// given file.
func FileResponse(t *testing.T, status int, contentType, path string) func(*stdhttp.Request) (*stdhttp.Response, error) {
	t.Helper()
	return func(req *stdhttp.Request) (*stdhttp.Response, error) {
		data, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open response file: %s", err)
		}
		header := make(stdhttp.Header)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		return &stdhttp.Response{
			StatusCode: status,
			Body:       data,
			Header:     header,
			Request:    req,
		}, nil
	}
}
