package mqtt

import (
	"fmt"
	"time"

	"example.com/rfidscan/config"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Client manages the MQTT connection only; subscriptions live in Subscriber
type Client struct {
	client paho.Client
	log    *logrus.Logger
}

// NewClient connects to the broker
func NewClient(cfg config.MQTTConfig, log *logrus.Logger) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.WithField("broker", cfg.Broker).Info("MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{client: client, log: log}, nil
}

// Native returns the underlying paho client
func (c *Client) Native() paho.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, allowing 250ms for in-flight work
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.log.Info("MQTT client disconnected")
}
