// Package mqtt wraps the paho client used for both actuation commands and telemetry.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by Publish while the broker link is down.
var ErrNotConnected = errors.New("mqtt client not connected")

// Options configures a Client.
type Options struct {
	Broker         string
	ClientID       string // a random suffix is appended to keep ids unique per process
	Username       string
	Password       string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	RetryInterval  time.Duration
}

type subscription struct {
	qos     byte
	handler func(topic string, payload []byte)
}

// Client is a reconnecting broker connection. Subscriptions are re-established on
// every (re)connect.
type Client struct {
	client paho.Client
	opts   Options

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient builds a client; call Connect to dial the broker.
func NewClient(opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}

	c := &Client{opts: opts, subs: make(map[string]subscription)}
	c.client = paho.NewClient(c.clientOptions())
	return c
}

func (c *Client) clientOptions() *paho.ClientOptions {
	clientID := c.opts.ClientID
	if clientID == "" {
		clientID = "smartpanel"
	}
	clientID = clientID + "-" + uuid.NewString()[:8]

	opts := paho.NewClientOptions().
		AddBroker(c.opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.opts.RetryInterval).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", c.opts.Broker).Msg("MQTT connection lost")
		})
	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}
	return opts
}

// Connect dials the broker and waits up to the connect timeout. A timeout is not
// fatal: the client keeps retrying in the background and publishes fail with
// ErrNotConnected until it succeeds.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()

	timer := time.NewTimer(c.opts.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		return nil
	case <-timer.C:
		log.Warn().Str("broker", c.opts.Broker).Dur("timeout", c.opts.ConnectTimeout).
			Msg("MQTT broker not reachable yet, retrying in background")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) onConnect(client paho.Client) {
	log.Info().Str("broker", c.opts.Broker).Msg("MQTT connected")

	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		c.subscribe(client, topic, sub)
	}
}

func (c *Client) subscribe(client paho.Client, topic string, sub subscription) {
	token := client.Subscribe(topic, sub.qos, func(_ paho.Client, msg paho.Message) {
		sub.handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.opts.PublishTimeout) {
		log.Warn().Str("topic", topic).Msg("MQTT subscribe timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("MQTT subscribe failed")
		return
	}
	log.Debug().Str("topic", topic).Msg("MQTT subscribed")
}

// Subscribe registers handler for topic. It takes effect immediately when
// connected and on every later reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) {
	sub := subscription{qos: qos, handler: handler}

	c.mu.Lock()
	c.subs[topic] = sub
	c.mu.Unlock()

	if c.client.IsConnected() {
		c.subscribe(c.client, topic, sub)
	}
}

// Publish sends payload with QoS 0, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.opts.PublishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, allowing one second for in-flight work.
func (c *Client) Close() error {
	c.client.Disconnect(1000)
	return nil
}
