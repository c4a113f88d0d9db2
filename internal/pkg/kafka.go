package pkg

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// DefaultNotificationTopic carries the mirrored notification stream when no
// topic is configured.
const DefaultNotificationTopic = "volunteerhub.notifications"

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaProducer publishes dispatched notifications onto one topic. The hash
// balancer keys partitions by target user, so each user's notifications
// arrive in dispatch order.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultNotificationTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaProducer{writer: w}, nil
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *KafkaProducer) Send(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// NotificationKey partitions the stream by the notification's target user.
func NotificationKey(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}
