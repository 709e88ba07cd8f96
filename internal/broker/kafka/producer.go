package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// AlertFeed publishes every created alert to the outbound topic, keyed by
// patient id so one patient's alerts stay ordered within a partition.
type AlertFeed struct {
	p     *Producer
	topic string
}

func NewAlertFeed(p *Producer, topic string) *AlertFeed {
	return &AlertFeed{p: p, topic: topic}
}

func (f *AlertFeed) PublishAlertRecord(ctx context.Context, alert *models.Alert) error {
	b, err := json.Marshal(messages.FromAlert(alert))
	if err != nil {
		return errors.Wrap(err, "marshal alert record")
	}
	return f.p.Publish(ctx, f.topic, []byte(alert.PatientID), b)
}
