// Package mqtt wraps the paho client with the small surface the bridge
// needs: retained JSON publishes, command subscriptions and an
// availability topic maintained via the last will.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sebr/bhyve-bridge/internal/icons"
	"github.com/sebr/bhyve-bridge/internal/models"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

var (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	qosAtLeastOnce = byte(1)
)

// MessageHandler is called with the topic and payload of an incoming message.
type MessageHandler func(topic string, payload []byte)

type Conn struct {
	client pahomqtt.Client

	availabilityTopic string

	// active subscriptions, replayed after a reconnect
	subscriptions   map[string]MessageHandler
	subscriptionsMu sync.Mutex

	pr *log.Logger
}

// New connects to the broker. The availability topic is set to online on
// every (re)connect and to offline via the last will.
func New(broker, clientID, username, password, availabilityTopic string) (*Conn, error) {
	if broker == "" {
		return nil, models.ErrEmptyBroker
	}

	conn := &Conn{
		availabilityTopic: availabilityTopic,
		subscriptions:     make(map[string]MessageHandler),
		pr:                models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(lipgloss.Color("#660066")).Render("MQTT")),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetWill(availabilityTopic, PayloadOffline, qosAtLeastOnce, true).
		SetOnConnectHandler(conn.onConnect).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			conn.pr.Warnf("%s connection lost: %s", icons.ConnectionFailed, err)
		})

	conn.client = pahomqtt.NewClient(opts)

	token := conn.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: connect timeout to %s", models.ErrConnectionClosed, broker)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", broker, token.Error())
	}

	return conn, nil
}

// onConnect announces availability and replays subscriptions, also after
// an automatic reconnect.
func (c *Conn) onConnect(client pahomqtt.Client) {
	c.pr.Printf("%s connected", icons.ConnectionOK)

	client.Publish(c.availabilityTopic, qosAtLeastOnce, true, PayloadOnline)

	c.subscriptionsMu.Lock()
	defer c.subscriptionsMu.Unlock()

	for topic, handler := range c.subscriptions {
		c.subscribe(topic, handler)
	}
}

// Publish publishes a raw payload.
func (c *Conn) Publish(topic string, payload []byte, retain bool) error {
	token := c.client.Publish(topic, qosAtLeastOnce, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: publish timeout on %s", models.ErrConnectionClosed, topic)
	}

	return token.Error()
}

// PublishString publishes a plain string payload.
func (c *Conn) PublishString(topic, payload string, retain bool) error {
	return c.Publish(topic, []byte(payload), retain)
}

// PublishJSON marshals the payload and publishes it.
func (c *Conn) PublishJSON(topic string, payload interface{}, retain bool) error {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	return c.Publish(topic, rawPayload, retain)
}

// Subscribe registers a handler for a topic (wildcards allowed). The
// subscription survives reconnects.
func (c *Conn) Subscribe(topic string, handler MessageHandler) {
	c.subscriptionsMu.Lock()
	c.subscriptions[topic] = handler
	c.subscriptionsMu.Unlock()

	c.subscribe(topic, handler)
}

func (c *Conn) subscribe(topic string, handler MessageHandler) {
	c.pr.Infof("%s subscribing to %s", icons.Sub, topic)

	c.client.Subscribe(topic, qosAtLeastOnce, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
}

// Close announces unavailability and disconnects.
func (c *Conn) Close() {
	_ = c.PublishString(c.availabilityTopic, PayloadOffline, true)

	c.client.Disconnect(uint(publishTimeout.Milliseconds()))
}
