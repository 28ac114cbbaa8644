// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/vartype"
)

const testEntryID = "40.7128--74.006"

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  any
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	publishErr   error
	incomplete   bool
	messages     []message
	disconnected bool
}

func (c *fakeClient) Connect() paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr == nil {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr, complete: true}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: payload})
	return &fakeToken{err: c.publishErr, complete: !c.incomplete}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func testPublisher(t *testing.T, client *fakeClient) *Publisher {
	t.Helper()
	publisher, err := New(Config{Broker: "tcp://127.0.0.1:1883"}, testEntryID,
		presenter.New(nil, testEntryID, soil.UnitsMetric), logger.New(slog.LevelDebug))
	if err != nil {
		t.Fatalf("failed to create publisher: %s", err)
	}
	publisher.client = client
	return publisher
}

func testState() *soil.State {
	return &soil.State{
		Current: soil.Reading{soil.Temperature0cm: vartype.NewVariable(68.0)},
		Summary: soil.Summary{},
	}
}

func TestNew(t *testing.T) {
	t.Run("missing broker fails", func(t *testing.T) {
		_, err := New(Config{}, testEntryID, presenter.New(nil, testEntryID, soil.UnitsMetric),
			logger.New(slog.LevelInfo))
		if err == nil {
			t.Error("expected error for missing broker")
		}
	})
	t.Run("defaults are applied", func(t *testing.T) {
		publisher, err := New(Config{Broker: "tcp://127.0.0.1:1883"}, testEntryID,
			presenter.New(nil, testEntryID, soil.UnitsMetric), logger.New(slog.LevelInfo))
		if err != nil {
			t.Fatalf("failed to create publisher: %s", err)
		}
		if !strings.HasPrefix(publisher.clientID, DefaultClientID+"-") || len(publisher.clientID) != len(DefaultClientID)+9 {
			t.Errorf("expected generated client id, got %s", publisher.clientID)
		}
		if publisher.prefix != DefaultTopicPrefix {
			t.Errorf("expected topic prefix %s, got %s", DefaultTopicPrefix, publisher.prefix)
		}
		if got := publisher.availabilityTopic(); got != "soil-temperature/40.7128--74.006/availability" {
			t.Errorf("unexpected availability topic: %s", got)
		}
	})
}

func TestPublisher_Connect(t *testing.T) {
	t.Run("connect succeeds", func(t *testing.T) {
		client := &fakeClient{}
		if err := testPublisher(t, client).Connect(t.Context()); err != nil {
			t.Errorf("failed to connect: %s", err)
		}
		if !client.IsConnected() {
			t.Error("expected client to be connected")
		}
	})
	t.Run("connect error is returned", func(t *testing.T) {
		client := &fakeClient{connectErr: errors.New("connection refused")}
		if err := testPublisher(t, client).Connect(t.Context()); err == nil {
			t.Error("expected connect to fail")
		}
	})
	t.Run("canceled context aborts connect", func(t *testing.T) {
		publisher := testPublisher(t, &fakeClient{})
		publisher.client = &pendingClient{fakeClient: &fakeClient{}}
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if err := publisher.Connect(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// pendingClient never completes its connect token.
type pendingClient struct {
	*fakeClient
}

func (c *pendingClient) Connect() paho.Token {
	return &fakeToken{}
}

func TestPublisher_Publish(t *testing.T) {
	t.Run("all readings are published retained", func(t *testing.T) {
		client := &fakeClient{connected: true}
		testPublisher(t, client).Publish(testState())
		if len(client.messages) != 44 {
			t.Fatalf("expected 44 messages, got %d", len(client.messages))
		}
		for _, msg := range client.messages {
			if !msg.retained {
				t.Errorf("expected message on %s to be retained", msg.topic)
			}
			if !strings.HasPrefix(msg.topic, "soil-temperature/"+testEntryID+"/") ||
				!strings.HasSuffix(msg.topic, "/state") {
				t.Errorf("unexpected topic: %s", msg.topic)
			}
		}

		first := client.messages[0]
		if first.topic != "soil-temperature/40.7128--74.006/current_soil_temperature_0cm/state" {
			t.Errorf("unexpected topic of first message: %s", first.topic)
		}
		var payload map[string]any
		if err := json.Unmarshal(first.payload.([]byte), &payload); err != nil {
			t.Fatalf("failed to decode payload: %s", err)
		}
		if payload["value"] != 20.0 || payload["unit"] != soil.UnitCelsius ||
			payload["name"] != "Current Soil Temperature 0cm" {
			t.Errorf("unexpected payload: %v", payload)
		}

		var unset map[string]any
		if err := json.Unmarshal(client.messages[1].payload.([]byte), &unset); err != nil {
			t.Fatalf("failed to decode payload: %s", err)
		}
		if value, ok := unset["value"]; !ok || value != nil {
			t.Errorf("expected null value for unset reading, got %v", unset)
		}
	})
	t.Run("nothing is published while disconnected", func(t *testing.T) {
		client := &fakeClient{}
		if err := testPublisher(t, client).publishState(testState()); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected %s, got %v", ErrNotConnected, err)
		}
		if len(client.messages) != 0 {
			t.Errorf("expected no messages, got %d", len(client.messages))
		}
	})
	t.Run("publish errors are joined", func(t *testing.T) {
		client := &fakeClient{connected: true, publishErr: errors.New("broker full")}
		err := testPublisher(t, client).publishState(testState())
		if err == nil || !strings.Contains(err.Error(), "broker full") {
			t.Errorf("expected publish error, got %v", err)
		}
	})
	t.Run("publish timeouts are reported", func(t *testing.T) {
		client := &fakeClient{connected: true, incomplete: true}
		publisher := testPublisher(t, client)
		publisher.timeout = time.Millisecond * 20
		err := publisher.publishState(testState())
		if err == nil || !strings.Contains(err.Error(), "publish timeout") {
			t.Errorf("expected publish timeout, got %v", err)
		}
	})
	t.Run("a stalled broker is bounded by one deadline for all readings", func(t *testing.T) {
		client := &fakeClient{connected: true, incomplete: true}
		publisher := testPublisher(t, client)
		publisher.timeout = time.Millisecond * 100

		start := time.Now()
		err := publisher.publishState(testState())
		elapsed := time.Since(start)
		if err == nil {
			t.Fatal("expected publish timeout")
		}
		if got := strings.Count(err.Error(), "publish timeout"); got != len(presenter.Descriptors()) {
			t.Errorf("expected %d timed out readings, got %d", len(presenter.Descriptors()), got)
		}
		// one timeout per reading would take 4.4s
		if elapsed > time.Second*2 {
			t.Errorf("expected publish to give up after about %s, took %s", publisher.timeout, elapsed)
		}
	})
}

func TestPublisher_Disconnect(t *testing.T) {
	client := &fakeClient{connected: true}
	testPublisher(t, client).Disconnect()
	if !client.disconnected {
		t.Error("expected client to be disconnected")
	}
	if len(client.messages) != 1 {
		t.Fatalf("expected availability message, got %d messages", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "soil-temperature/40.7128--74.006/availability" || msg.payload != availabilityOffline {
		t.Errorf("unexpected availability message: %+v", msg)
	}
}
