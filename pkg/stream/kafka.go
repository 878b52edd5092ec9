// Package stream forwards accepted measurements to Kafka for downstream consumers
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used here
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per measurement, keyed by device so a
// device's readings stay ordered within a partition
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	})
}

func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w, timeout: 5 * time.Second}
}

// measurementEvent is the wire format on the topic
type measurementEvent struct {
	DeviceUID   string    `json:"device_uid"`
	CO2         int       `json:"co2"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    *float64  `json:"pressure,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishMeasurement writes the measurement synchronously within a short timeout
func (p *Publisher) PublishMeasurement(ctx context.Context, m model.Measurement) error {
	value, err := json.Marshal(measurementEvent{
		DeviceUID:   m.DeviceUID,
		CO2:         m.CO2,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
		Pressure:    m.Pressure,
		Timestamp:   m.Timestamp.UTC(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.DeviceUID),
		Value: value,
		Time:  m.Timestamp,
	}); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
