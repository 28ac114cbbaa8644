// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mqtt publishes the soil readings to an MQTT broker after every successful refresh.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/vartype"
)

const (
	// DefaultClientID is suffixed with a random id, so that multiple instances can share a broker
	DefaultClientID    = "soil-temperature"
	DefaultTopicPrefix = "soil-temperature"

	availabilityOnline  = "online"
	availabilityOffline = "offline"

	qos            = 1
	publishTimeout = time.Second * 5
	connectPoll    = time.Millisecond * 200
	quiesceMillis  = 250
)

var ErrNotConnected = errors.New("mqtt client not connected")

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
}

// Renderer renders the readings of a state.
type Renderer interface {
	Render(state *soil.State) []presenter.Reading
}

// client is the subset of paho.Client used by the publisher.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

type Publisher struct {
	client   client
	clientID string
	renderer Renderer
	entryID  string
	prefix   string
	logger   *logger.Logger

	// timeout bounds a whole publish round, not a single message
	timeout time.Duration
}

type statePayload struct {
	Value vartype.VarFloat64 `json:"value"`
	Unit  string             `json:"unit"`
	Name  string             `json:"name"`
}

// New creates a publisher for the given entry. The broker connection is established by Connect.
func New(conf Config, entryID string, renderer Renderer, log *logger.Logger) (*Publisher, error) {
	if conf.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if conf.ClientID == "" {
		conf.ClientID = DefaultClientID + "-" + uuid.NewString()[:8]
	}
	if conf.TopicPrefix == "" {
		conf.TopicPrefix = DefaultTopicPrefix
	}

	publisher := &Publisher{
		clientID: conf.ClientID,
		renderer: renderer,
		entryID:  entryID,
		prefix:   conf.TopicPrefix,
		logger:   log.With(slog.String("broker", conf.Broker)),
		timeout:  publishTimeout,
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Broker)
	opts.SetClientID(conf.ClientID)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(publisher.availabilityTopic(), availabilityOffline, qos, true)
	opts.SetOnConnectHandler(func(paho.Client) {
		publisher.logger.Info("mqtt connected")
		publisher.publishAvailability(availabilityOnline)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		publisher.logger.Warn("mqtt connection lost", logger.Err(err))
	})
	publisher.client = paho.NewClient(opts)

	return publisher, nil
}

// Connect waits for the initial broker connection. Reconnects are handled by the client.
func (p *Publisher) Connect(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	for {
		if token.WaitTimeout(connectPoll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("failed to connect to mqtt broker: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Publish publishes all readings of the state as retained messages. It is meant to be registered
// as a coordinator listener.
func (p *Publisher) Publish(state *soil.State) {
	if err := p.publishState(state); err != nil {
		p.logger.Error("failed to publish soil readings", logger.Err(err))
	}
}

func (p *Publisher) publishState(state *soil.State) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	readings := p.renderer.Render(state)
	tokens := make(map[string]paho.Token, len(readings))
	for _, reading := range readings {
		payload, err := json.Marshal(statePayload{Value: reading.Value, Unit: reading.Unit, Name: reading.Name})
		if err != nil {
			return fmt.Errorf("failed to encode reading %s: %w", reading.ID, err)
		}
		topic := p.stateTopic(reading.ID)
		tokens[topic] = p.client.Publish(topic, qos, true, payload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var errs []error
	for topic, token := range tokens {
		if !waitToken(ctx, token) {
			errs = append(errs, fmt.Errorf("publish timeout for topic %s", topic))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish to %s: %w", topic, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	p.logger.Debug("published soil readings", slog.Int("readings", len(readings)))
	return nil
}

// Disconnect marks the entry as offline and closes the broker connection.
func (p *Publisher) Disconnect() {
	if p.client.IsConnected() {
		p.publishAvailability(availabilityOffline)
	}
	p.client.Disconnect(quiesceMillis)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) publishAvailability(status string) {
	token := p.client.Publish(p.availabilityTopic(), qos, true, status)
	if !token.WaitTimeout(p.timeout) {
		p.logger.Error("failed to publish availability", slog.String("status", status),
			logger.Err(errors.New("publish timeout")))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish availability", slog.String("status", status), logger.Err(err))
	}
}

// waitToken reports whether the token completed before ctx expired. A completed token wins over
// an expired context.
func waitToken(ctx context.Context, token paho.Token) bool {
	select {
	case <-token.Done():
		return true
	default:
	}
	select {
	case <-token.Done():
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Publisher) stateTopic(readingID string) string {
	return p.prefix + "/" + p.entryID + "/" + readingID + "/state"
}

func (p *Publisher) availabilityTopic() string {
	return p.prefix + "/" + p.entryID + "/availability"
}
