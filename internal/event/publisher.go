// Package event publishes progress events to RabbitMQ.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"training-quiz-service/internal/domain"
)

const (
	DefaultExchange = "training.events"

	RoutingQuizCompleted = "quiz.completed"
	RoutingBadgeEarned   = "badge.earned"
)

// Publisher sends quiz completion and badge events to a topic exchange. A
// publisher built with an empty URI is disabled and drops every event.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	now      func() time.Time
}

func NewPublisher(uri, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if uri == "" {
		log.Println("rabbitmq uri is empty, event publishing is disabled")
		return &Publisher{exchange: exchange, now: time.Now}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Printf("event publisher ready on exchange %s", exchange)
	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
		now:      time.Now,
	}, nil
}

// Enabled reports whether events reach a broker.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) PublishQuizCompleted(ctx context.Context, event domain.QuizCompletedEvent) error {
	return p.publish(ctx, RoutingQuizCompleted, event.UserID, event)
}

func (p *Publisher) PublishBadgeEarned(ctx context.Context, event domain.BadgeEarnedEvent) error {
	return p.publish(ctx, RoutingBadgeEarned, event.UserID, event)
}

func (p *Publisher) publish(ctx context.Context, routingKey, userID string, payload interface{}) error {
	if !p.enabled {
		return nil
	}
	body, err := encode(payload)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
			Headers: amqp091.Table{
				"event_type": routingKey,
				"user_id":    userID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func encode(payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
