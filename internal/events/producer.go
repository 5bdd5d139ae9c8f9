package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"festival-ticketing/internal/config"
	"festival-ticketing/internal/logger"

	kafka "github.com/segmentio/kafka-go"
)

// PaymentEvent is published to downstream consumers (CMS dashboard, stats)
// on every reconciled payment transition.
type PaymentEvent struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"order_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	Timestamp   time.Time `json:"timestamp"`
}

type Producer struct {
	settledWriter *kafka.Writer
	failedWriter  *kafka.Writer
	enabled       bool
	log           *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	p := &Producer{enabled: cfg.Enabled, log: log}
	if !cfg.Enabled {
		log.Warn("KAFKA", "event publishing disabled by config")
		return p
	}
	p.settledWriter = kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topics.PaymentSettled,
	})
	p.failedWriter = kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topics.PaymentFailed,
	})
	return p
}

// PublishSettled streams a first-successful-payment event.
func (p *Producer) PublishSettled(ctx context.Context, orderNumber, oldStatus, newStatus string) error {
	return p.publish(ctx, p.settledWriter, PaymentEvent{
		Type:        "payment.settled",
		OrderNumber: orderNumber,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Timestamp:   time.Now(),
	})
}

// PublishFailed streams a terminal-failure event.
func (p *Producer) PublishFailed(ctx context.Context, orderNumber, oldStatus, newStatus string) error {
	return p.publish(ctx, p.failedWriter, PaymentEvent{
		Type:        "payment.failed",
		OrderNumber: orderNumber,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Timestamp:   time.Now(),
	})
}

func (p *Producer) publish(ctx context.Context, writer *kafka.Writer, event PaymentEvent) error {
	if !p.enabled || writer == nil {
		return nil
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: msgBytes,
	})
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("publish %s for %s failed: %v", event.Type, event.OrderNumber, err))
		return err
	}

	p.log.Info("KAFKA", fmt.Sprintf("published %s for %s", event.Type, event.OrderNumber))
	return nil
}

func (p *Producer) Close() error {
	if p.settledWriter != nil {
		if err := p.settledWriter.Close(); err != nil {
			return err
		}
	}
	if p.failedWriter != nil {
		return p.failedWriter.Close()
	}
	return nil
}
