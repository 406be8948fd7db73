package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer drives.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes outbox rows through one writer shared by the
// corrections and profiles topics. The topic travels on each message, and
// keys are hashed so every event of one worker lands on the same partition.
type KafkaProducer struct {
	writer messageWriter
}

// NewKafkaProducer creates a KafkaProducer for the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: false,
	}}
}

// WriteMessages addresses msgs to topic and writes them synchronously.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i := range msgs {
		if msgs[i].Topic != "" && msgs[i].Topic != topic {
			return fmt.Errorf("message %d addressed to %q, batch is for %q", i, msgs[i].Topic, topic)
		}
		msgs[i].Topic = topic
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending batches and releases broker connections.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
