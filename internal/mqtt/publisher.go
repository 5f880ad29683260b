package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sky-gradient/internal/session"
	"sky-gradient/internal/sky"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
	log         logrus.FieldLogger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Logger      logrus.FieldLogger
}

// statePayload is the retained JSON document on <prefix>/sky/state.
type statePayload struct {
	Minutes int       `json:"minutes"`
	Clock   string    `json:"clock"`
	Top     string    `json:"top"`
	Bottom  string    `json:"bottom"`
	CSS     string    `json:"css"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Factor  float64   `json:"factor"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !cfg.Enabled {
		return &Publisher{enabled: false, topicPrefix: cfg.TopicPrefix, log: log}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
		log:         log,
	}, nil
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/sky/%s", p.topicPrefix, name)
}

// Messages returns the per-value topics and payloads for a gradient.
func (p *Publisher) Messages(g sky.Gradient) map[string]string {
	return map[string]string{
		p.topic("top"):     g.Top.Hex(),
		p.topic("bottom"):  g.Bottom.Hex(),
		p.topic("css"):     g.CSS(),
		p.topic("minutes"): fmt.Sprintf("%d", int(g.Minutes)),
		p.topic("clock"):   g.Minutes.String(),
	}
}

// StatePayload returns the retained JSON state document for a gradient.
func (p *Publisher) StatePayload(g sky.Gradient, origin session.Origin, at time.Time) ([]byte, error) {
	return json.Marshal(statePayload{
		Minutes: int(g.Minutes),
		Clock:   g.Minutes.String(),
		Top:     g.Top.Hex(),
		Bottom:  g.Bottom.Hex(),
		CSS:     g.CSS(),
		From:    g.From,
		To:      g.To,
		Factor:  g.Factor,
		Origin:  string(origin),
		At:      at,
	})
}

// Render publishes the gradient; it makes the publisher a session renderer.
func (p *Publisher) Render(_ context.Context, g sky.Gradient, origin session.Origin) error {
	if !p.enabled {
		return nil
	}

	for topic, payload := range p.Messages(g) {
		token := p.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			p.log.WithField("topic", topic).WithError(token.Error()).Warn("Failed to publish")
		}
	}

	state, err := p.StatePayload(g, origin, time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	token := p.client.Publish(p.topic("state"), 0, true, state)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish state: %w", token.Error())
	}

	return nil
}

// DiscoveryConfigs returns the Home Assistant discovery documents keyed by
// discovery topic.
func (p *Publisher) DiscoveryConfigs() map[string]map[string]interface{} {
	sensors := []struct {
		Name string
		ID   string
		Icon string
	}{
		{"Sky Top Color", "top", "mdi:weather-night"},
		{"Sky Bottom Color", "bottom", "mdi:weather-sunset"},
		{"Sky Clock", "clock", "mdi:clock-outline"},
	}

	configs := make(map[string]map[string]interface{}, len(sensors))
	for _, sensor := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/sky_gradient/%s/config", sensor.ID)
		configs[discoveryTopic] = map[string]interface{}{
			"name":        sensor.Name,
			"unique_id":   fmt.Sprintf("sky_gradient_%s", sensor.ID),
			"state_topic": p.topic(sensor.ID),
			"icon":        sensor.Icon,
			"device": map[string]interface{}{
				"identifiers":  []string{"sky_gradient"},
				"name":         "Sky Gradient",
				"manufacturer": "sky-gradient",
			},
		}
	}
	return configs
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	for topic, config := range p.DiscoveryConfigs() {
		payload, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery config: %w", err)
		}
		token := p.client.Publish(topic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to publish discovery to %s: %w", topic, token.Error())
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
