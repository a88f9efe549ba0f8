package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/rfidscan/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event types published for scanner activity
const (
	EventScannerCreated = "scanner.created"
	EventScanSubmitted  = "scan.submitted"
	EventScannerReset   = "scanner.reset"
)

// Envelope wraps every published event
type Envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	Account    string      `json:"account"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with a fresh event ID
func NewEnvelope(eventType, account string, payload interface{}) Envelope {
	return Envelope{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		Account:    account,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ServiceBusClient is an interface for Azure Service Bus operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}, sessionID string) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client     *azservicebus.Client
	sender     *azservicebus.Sender
	queueName  string
	clientType string
}

// logClient stands in for Service Bus when no connection string is configured
type logClient struct {
	clientType string
	log        *logrus.Logger
}

// NewServiceBusClient creates a new Azure Service Bus client
func NewServiceBusClient(cfg config.ServiceBusConfig, clientType string, log *logrus.Logger) (ServiceBusClient, error) {
	if cfg.ConnectionString == "" {
		return &logClient{clientType: clientType, log: log}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &serviceBusClient{
		client:     client,
		sender:     sender,
		queueName:  cfg.QueueName,
		clientType: clientType,
	}, nil
}

// SendMessage sends a message to the Service Bus queue. The session ID keeps
// messages for one account in order.
func (s *serviceBusClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": s.clientType,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
		SessionID: &sessionID,
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// Close closes the Service Bus client
func (s *serviceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}

	if s.client != nil {
		return s.client.Close(context.Background())
	}

	return nil
}

func (m *logClient) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	m.log.WithFields(logrus.Fields{
		"source":     m.clientType,
		"session_id": sessionID,
		"body":       body,
	}).Debug("Service Bus not configured, message logged only")
	return nil
}

func (m *logClient) Close() error {
	return nil
}
