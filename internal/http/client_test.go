// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/testhelper"
)

func TestNew(t *testing.T) {
	client := New(logger.New(slog.LevelInfo))
	if client == nil {
		t.Fatal("expected client to be non-nil")
	}
	if client.Timeout != DefaultTimeout {
		t.Errorf("expected timeout to be %s, got %s", DefaultTimeout, client.Timeout)
	}
}

func TestClient_Get(t *testing.T) {
	t.Run("raw body is returned regardless of content type", func(t *testing.T) {
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{
			Fn: testhelper.StringResponse(200, "text/html; charset=utf-8", `{"ok":true}`),
		}

		response, err := client.Get(t.Context(), "https://example.com", nil, nil)
		if err != nil {
			t.Fatalf("failed to get response: %s", err)
		}
		if response.StatusCode != 200 {
			t.Errorf("expected status code 200, got %d", response.StatusCode)
		}
		if !response.OK() {
			t.Error("expected response to be OK")
		}
		if string(response.Body) != `{"ok":true}` {
			t.Errorf("unexpected body: %s", response.Body)
		}
	})
	t.Run("query and headers are sent", func(t *testing.T) {
		var got *stdhttp.Request
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			got = req
			return testhelper.StringResponse(200, "", "")(req)
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}
		query := url.Values{}
		query.Add("lat", "1.5")
		headers := map[string]string{"Referer": "https://example.com/", "User-Agent": "custom"}

		if _, err := client.Get(t.Context(), "https://example.com/api", query, headers); err != nil {
			t.Fatalf("failed to get response: %s", err)
		}
		if got.URL.Query().Get("lat") != "1.5" {
			t.Errorf("expected lat query parameter, got %q", got.URL.RawQuery)
		}
		if got.Header.Get("Referer") != "https://example.com/" {
			t.Errorf("expected referer header, got %q", got.Header.Get("Referer"))
		}
		if got.Header.Get("User-Agent") != "custom" {
			t.Errorf("expected caller headers to override defaults, got %q", got.Header.Get("User-Agent"))
		}
		if got.Header.Get("Accept") == "" {
			t.Error("expected default accept header to be set")
		}
	})
	t.Run("non-2xx status is not an error of the client", func(t *testing.T) {
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: testhelper.StringResponse(503, "", "down")}

		response, err := client.Get(t.Context(), "https://example.com", nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %s", err)
		}
		if response.OK() {
			t.Error("expected response not to be OK")
		}
	})
	t.Run("parsing an invalid url should fail", func(t *testing.T) {
		client := New(logger.New(slog.LevelInfo))
		_, err := client.Get(t.Context(), "http://example.com/xyz%", nil, nil)
		if err == nil {
			t.Fatal("expected get to fail")
		}
		if !strings.Contains(err.Error(), "failed to parse URL") {
			t.Errorf("expected error to contain 'failed to parse URL', got %s", err)
		}
	})
	t.Run("get request fails", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, err := client.Get(t.Context(), "https://example.com", nil, nil)
		if err == nil {
			t.Fatal("expected get request to fail")
		}
		if !strings.Contains(err.Error(), "failed to perform HTTP request") {
			t.Errorf("unexpected error: %s", err)
		}
	})
	t.Run("failing body close is logged, not returned", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 200,
				Body:       &failCloser{Reader: strings.NewReader("{}")},
				Header:     make(stdhttp.Header),
			}, nil
		}
		buf := new(strings.Builder)
		client := New(logger.NewLogger(slog.LevelInfo, buf))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		if _, err := client.Get(t.Context(), "https://example.com", nil, nil); err != nil {
			t.Fatalf("expected no error, got %s", err)
		}
		if !strings.Contains(buf.String(), "failed to close HTTP request body") {
			t.Errorf("expected close error to be logged, got %q", buf.String())
		}
	})
	t.Run("failing body read returns an error", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 200,
				Body:       io.NopCloser(failReader{}),
				Header:     make(stdhttp.Header),
			}, nil
		}
		client := New(logger.NewLogger(slog.LevelInfo, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		if _, err := client.Get(t.Context(), "https://example.com", nil, nil); err == nil {
			t.Fatal("expected get request to fail")
		}
	})
}

func TestClient_GetWithTimeout(t *testing.T) {
	t.Run("get request fails on deadline", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}
		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		_, err := client.GetWithTimeout(t.Context(), "https://example.com", nil, nil, time.Millisecond)
		if err == nil {
			t.Fatal("expected get request to fail")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to be %s, got %s", context.DeadlineExceeded, err)
		}
	})
	t.Run("get request against the online API", func(t *testing.T) {
		testhelper.PerformIntegrationTests(t)
		client := New(logger.New(slog.LevelInfo))
		response, err := client.GetWithTimeout(t.Context(), testhelper.TestOnlineAPIURL, nil, nil, time.Second*30)
		if err != nil {
			t.Fatalf("failed to get response: %s", err)
		}
		if len(response.Body) == 0 {
			t.Error("expected non-empty body")
		}
	})
}

type failCloser struct {
	io.Reader
}

func (failCloser) Close() error { return errors.New("failed to close") }

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errors.New("failed to read") }
