// Package mqtt mirrors device events to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT connection settings. An empty Broker disables the client.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// pahoClient is the part of paho.Client the mirror uses.
type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
}

// Client wraps the paho client. A disabled client accepts every call and
// does nothing.
type Client struct {
	client  pahoClient
	topic   string
	enabled bool
	logger  *slog.Logger
}

// New creates a client for cfg. Returns a disabled no-op client if the
// broker is empty.
func New(cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		topic:  strings.TrimSuffix(cfg.Topic, "/"),
		logger: logger,
	}
	if c.topic == "" {
		c.topic = "pinnode"
	}

	if cfg.Broker == "" {
		logger.Info("MQTT disabled (no broker configured)")
		return c
	}

	clientID := cfg.ClientID
	if clientID == "" {
		host, _ := os.Hostname()
		clientID = "pinnode-" + host
	}

	opts := paho.NewClientOptions().
		AddBroker(BrokerURL(cfg.Broker)).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect)

	paho.ERROR = pahoLogger{logger: logger, level: slog.LevelError}
	paho.CRITICAL = pahoLogger{logger: logger, level: slog.LevelError}
	paho.WARN = pahoLogger{logger: logger, level: slog.LevelWarn}

	c.client = paho.NewClient(opts)
	c.enabled = true
	return c
}

// BrokerURL adds the tcp scheme and default port to a bare host.
func BrokerURL(broker string) string {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	hostPart := broker[strings.Index(broker, "://")+3:]
	if !strings.Contains(hostPart, ":") {
		broker += ":1883"
	}
	return broker
}

// Connect starts connecting in the background. With connect retry enabled
// paho keeps trying until Disconnect, so the token is not waited on.
func (c *Client) Connect() {
	if !c.enabled {
		return
	}
	token := c.client.Connect()
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			c.logger.Warn("MQTT connect failed", "error", err)
		}
	}()
}

// Disconnect disconnects from the broker. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled {
		return
	}
	c.client.Disconnect(250)
}

// Publish sends payload to <topic>/<name> at QoS 0, not retained.
// No-op if disabled.
func (c *Client) Publish(name string, payload []byte) error {
	if !c.enabled {
		return nil
	}
	topic := c.Topic(name)
	token := c.client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Topic returns the full topic for an event name.
func (c *Client) Topic(name string) string {
	return c.topic + "/" + name
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

func (c *Client) handleConnect(_ paho.Client) {
	c.logger.Info("MQTT connection established")
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("MQTT connection lost", "error", err)
}

// pahoLogger routes paho's internal logging into slog.
type pahoLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (l pahoLogger) Println(v ...any) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l pahoLogger) Printf(format string, v ...any) {
	l.logger.Log(context.Background(), l.level, fmt.Sprintf(format, v...))
}
