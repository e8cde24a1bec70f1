package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"dispatch/internal/domain"
)

// StatusChangedEvent is the payload published on every successful status
// advance. Keyed by tracking number so all events for one shipment land on
// the same partition.
type StatusChangedEvent struct {
	DeliveryID     string    `json:"delivery_id"`
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher emits delivery events to a Kafka topic. Publishing is
// best-effort: failures are logged and never fail the primary operation.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for the given broker and topic.
func NewPublisher(brokerAddr, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddr),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishStatusChanged emits a status-change event for a delivery.
func (p *Publisher) PublishStatusChanged(ctx context.Context, delivery *domain.Delivery, previous domain.DeliveryStatus) error {
	event := StatusChangedEvent{
		DeliveryID:     delivery.ID,
		OrderID:        delivery.OrderID,
		TrackingNumber: delivery.TrackingNumber,
		Status:         string(delivery.Status),
		PreviousStatus: string(previous),
		OccurredAt:     time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(delivery.TrackingNumber),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("[EVENTS] publish failed for %s: %v", delivery.TrackingNumber, err)
		return err
	}
	return nil
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
