// Package events publishes article lifecycle events to Kafka so downstream
// consumers (analytics, alerting) can react to new content without polling
// the vector store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"

	"sportsrag/types"
)

// ArticleIngested is the payload published for each stored article.
type ArticleIngested struct {
	ArticleID  string    `json:"article_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	IngestedAt time.Time `json:"ingested_at"`
}

// syncProducer is the slice of sarama.SyncProducer the publisher needs.
type syncProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// Publisher emits article events to a single Kafka topic, keyed by article ID
// so re-ingestions of the same article land on the same partition.
type Publisher struct {
	producer syncProducer
	topic    string
}

// PublisherConfig holds Kafka producer configuration.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("Kafka publisher started (topic: %s)", cfg.Topic)
	return &Publisher{producer: producer, topic: cfg.Topic}, nil
}

// PublishArticle sends one ArticleIngested event.
func (p *Publisher) PublishArticle(ctx context.Context, article *types.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := ArticleIngested{
		ArticleID:  article.ID,
		Title:      article.Title,
		URL:        article.URL,
		Source:     article.Source,
		IngestedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(article.ID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes and shuts down the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
