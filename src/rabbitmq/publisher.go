package rabbitmq

import (
	"encoding/json"
	"log/slog"

	"github.com/streadway/amqp"

	"call-session-service/src/realtime"
)

const (
	// CallLogExchange receives every session transition for external
	// operational monitoring.
	CallLogExchange = "call_logs"

	// EmergencyExchange receives emergency alerts only.
	EmergencyExchange = "emergency_alerts"
)

// Publisher defines the interface for publishing messages to RabbitMQ.
type Publisher interface {
	Publish(exchange string, body []byte) error
	Close()
}

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher creates a new AMQPPublisher and connects to RabbitMQ.
func NewAMQPPublisher(amqpURL string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

// Publish publishes a message to the given fanout exchange.
func (p *AMQPPublisher) Publish(exchange string, body []byte) error {
	err := p.channel.ExchangeDeclare(
		exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	return p.channel.Publish(
		exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close closes the RabbitMQ connection and channel.
func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// OpsNotifier mirrors admin-scope realtime events onto RabbitMQ exchanges so
// monitoring can consume transitions without holding a websocket open.
// Publish failures are logged and dropped, matching the realtime channel's
// best-effort semantics.
type OpsNotifier struct {
	publisher Publisher
}

// NewOpsNotifier wraps a Publisher as a realtime.Notifier.
func NewOpsNotifier(publisher Publisher) *OpsNotifier {
	return &OpsNotifier{publisher: publisher}
}

// PublishStatus mirrors a transition to the call-log exchange.
func (n *OpsNotifier) PublishStatus(ev realtime.Event) {
	n.publish(CallLogExchange, ev)
}

// PublishEmergency mirrors an alert to the emergency exchange.
func (n *OpsNotifier) PublishEmergency(ev realtime.Event) {
	n.publish(EmergencyExchange, ev)
}

func (n *OpsNotifier) publish(exchange string, ev realtime.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal ops event", "error", err)
		return
	}
	if err := n.publisher.Publish(exchange, body); err != nil {
		slog.Error("Failed to publish ops event",
			"exchange", exchange,
			"session_id", ev.SessionID,
			"error", err)
	}
}

// Close releases the underlying publisher.
func (n *OpsNotifier) Close() {
	n.publisher.Close()
}
