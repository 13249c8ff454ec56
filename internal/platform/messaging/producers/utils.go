package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicLookupAttempts = 5
	topicLookupBackoff  = 2 * time.Second
)

// createKafkaTopicIfNotExists creates the topic when its partitions cannot be read.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)
	for i := 0; i < topicLookupAttempts; i++ {
		partitions, err = conn.ReadPartitions(topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read topic partitions, retrying", "topic", topic, "attempt", i+1, "error", err)
		time.Sleep(topicLookupBackoff)
	}
	if len(partitions) > 0 {
		log.Info("Kafka topic exists", "topic", topic, "partitions", len(partitions))
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}
	log.Info("Creating Kafka topic", "topic", topic, "partitions", topicConfig.NumPartitions)
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
