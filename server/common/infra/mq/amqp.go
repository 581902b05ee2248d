package mq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const usageExchange = "toolhub.usage"

func NewConnection(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

// UsagePublisher emits usage events onto a topic exchange for external
// reporting consumers. Publishing is best effort; callers decide whether a
// failure matters (for accounting it never does).
type UsagePublisher struct {
	channel *amqp.Channel
}

func NewUsagePublisher(conn *amqp.Connection) (*UsagePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(usageExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &UsagePublisher{channel: ch}, nil
}

func (p *UsagePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, usageExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *UsagePublisher) Close() error {
	return p.channel.Close()
}
