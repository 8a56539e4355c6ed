package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/WeatherWatch/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic and commits a message only after its handler succeeds.
type Consumer struct {
	r     messageReader
	topic string
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{r: kafka.NewReader(cfg), topic: topic}
}

func newConsumerWithReader(r messageReader, topic string) *Consumer {
	return &Consumer{r: r, topic: topic}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume hands raw key/value pairs to handler.
func (c *Consumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	return c.consume(ctx, func(msg kafka.Message) error {
		return handler(msg.Key, msg.Value)
	})
}

// ShipmentUpdateHandler applies one decoded carrier scan.
type ShipmentUpdateHandler func(ctx context.Context, m messages.ShipmentUpdated) error

// ConsumeShipmentUpdates decodes every message as a carrier scan. Undecodable
// payloads are logged and committed. The message key is the shipment id and
// fills ShipmentID when the payload names neither identifier.
func (c *Consumer) ConsumeShipmentUpdates(ctx context.Context, handler ShipmentUpdateHandler) error {
	return c.consume(ctx, func(msg kafka.Message) error {
		var m messages.ShipmentUpdated
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			slog.Warn("skip malformed shipment update",
				"topic", c.topic, "partition", msg.Partition, "offset", msg.Offset, "error", err.Error())
			return nil
		}
		if m.ShipmentID == "" && m.TrackingNumber == "" {
			m.ShipmentID = string(msg.Key)
		}
		return handler(ctx, m)
	})
}

func (c *Consumer) consume(ctx context.Context, handle func(msg kafka.Message) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrapf(err, "fetch message from %s", c.topic)
		}
		if err := handle(msg); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrapf(err, "commit %s/%d@%d", c.topic, msg.Partition, msg.Offset)
		}
	}
}
