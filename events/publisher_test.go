package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"sportsrag/types"
)

type fakeProducer struct {
	messages []*sarama.ProducerMessage
	fail     bool
	closed   bool
}

func (f *fakeProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if f.fail {
		return 0, 0, errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msg)
	return 0, int64(len(f.messages)), nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestPublishArticle(t *testing.T) {
	producer := &fakeProducer{}
	pub := &Publisher{producer: producer, topic: "news.articles"}

	article := &types.Article{
		ID:     types.GenerateID("https://example.com/match"),
		Title:  "Match Report",
		URL:    "https://example.com/match",
		Source: "espn",
	}
	if err := pub.PublishArticle(context.Background(), article); err != nil {
		t.Fatalf("PublishArticle returned error: %v", err)
	}

	if len(producer.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.Topic != "news.articles" {
		t.Errorf("topic = %q, want news.articles", msg.Topic)
	}

	key, _ := msg.Key.Encode()
	if string(key) != article.ID {
		t.Errorf("message key = %q, want article ID %q", key, article.ID)
	}

	raw, _ := msg.Value.Encode()
	var event ArticleIngested
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if event.ArticleID != article.ID || event.URL != article.URL || event.Source != "espn" {
		t.Errorf("event = %+v, want fields from %+v", event, article)
	}
	if event.IngestedAt.IsZero() {
		t.Error("event missing ingestion timestamp")
	}
}

func TestPublishArticleBrokerError(t *testing.T) {
	pub := &Publisher{producer: &fakeProducer{fail: true}, topic: "news.articles"}
	err := pub.PublishArticle(context.Background(), &types.Article{ID: "abc"})
	if err == nil {
		t.Fatal("expected error when broker is unavailable")
	}
}

func TestPublishArticleCancelledContext(t *testing.T) {
	producer := &fakeProducer{}
	pub := &Publisher{producer: producer, topic: "news.articles"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.PublishArticle(ctx, &types.Article{ID: "abc"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(producer.messages) != 0 {
		t.Error("cancelled publish still sent a message")
	}
}

func TestClose(t *testing.T) {
	producer := &fakeProducer{}
	pub := &Publisher{producer: producer, topic: "news.articles"}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !producer.closed {
		t.Error("Close did not close the producer")
	}
}
