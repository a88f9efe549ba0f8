package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/utils"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// ScanPayload is the body a device publishes on rfid/{account}/scan. A
// device with an unset clock reports scan_time 0, which is valid.
type ScanPayload struct {
	DeviceID uint32  `json:"device_id"`
	ScanTime *uint32 `json:"scan_time" validate:"required"`
	TagUID   string  `json:"tag_uid" validate:"required,tag_uid"`
}

// ScanHandler receives a decoded scan. The account comes from the topic and
// is also the caller identity, since the broker authenticates publishers
// per topic.
type ScanHandler func(ctx context.Context, account scanlog.Account, payload ScanPayload) error

// Subscriber feeds device scans from the broker into a ScanHandler
type Subscriber struct {
	client  paho.Client
	topic   string
	handler ScanHandler
	timeout time.Duration
	log     *logrus.Logger
}

// NewSubscriber creates a subscriber for topic, e.g. "rfid/+/scan"
func NewSubscriber(client paho.Client, topic string, handler ScanHandler, log *logrus.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		topic:   topic,
		handler: handler,
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Subscribe registers the scan handler with QoS 1
func (s *Subscriber) Subscribe() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, token.Error())
	}
	s.log.WithField("topic", s.topic).Info("Subscribed to scan topic")
	return nil
}

// Unsubscribe removes the subscription
func (s *Subscriber) Unsubscribe() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}

func (s *Subscriber) handleMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.Process(ctx, msg.Topic(), msg.Payload()); err != nil {
		s.log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropped scan message")
	}
}

// Process decodes one message and hands it to the handler
func (s *Subscriber) Process(ctx context.Context, topic string, body []byte) error {
	account := ExtractAccount(topic)
	if !utils.IsValidAccount(account) {
		return fmt.Errorf("no account in topic %q", topic)
	}

	var payload ScanPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("invalid scan payload: %w", err)
	}
	if err := utils.ValidateStruct(payload); err != nil {
		return fmt.Errorf("invalid scan payload: %w", err)
	}

	return s.handler(ctx, scanlog.Account(account), payload)
}

// ExtractAccount returns the second topic level:
// "rfid/dock-door-3/scan" -> "dock-door-3"
func ExtractAccount(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
