package notify

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

// KafkaNotifier publishes events as JSON to a topic, keyed by submitter so a
// user's events stay ordered.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaNotifier(brokers, topic string) (*KafkaNotifier, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
	})
	if err != nil {
		return nil, err
	}

	n := &KafkaNotifier{producer: producer, topic: topic}
	go n.drainEvents()

	return n, nil
}

// drainEvents logs delivery failures reported asynchronously by the producer.
func (k *KafkaNotifier) drainEvents() {
	for e := range k.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logrus.Errorf("notification delivery failed: %v", ev.TopicPartition.Error)
			}
		case kafka.Error:
			logrus.Errorf("kafka producer error: %v", ev)
		}
	}
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (k *KafkaNotifier) publish(key, eventType string, payload any) error {
	value, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}

	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(eventType)}},
	}, nil)
}

func (k *KafkaNotifier) SuggestionApproved(ctx context.Context, event SuggestionApproved) error {
	return k.publish(event.SubmitterID, EventSuggestionApproved, event)
}

func (k *KafkaNotifier) AchievementUnlocked(ctx context.Context, event AchievementUnlocked) error {
	return k.publish(event.SubmitterID, EventAchievementUnlocked, event)
}

// Close flushes pending messages for up to five seconds.
func (k *KafkaNotifier) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		logrus.Warnf("%d notifications were not delivered before shutdown", remaining)
	}
	k.producer.Close()
}
