package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

// Publisher publishes event envelopes to the topic exchange. It satisfies
// fanout.Publisher.
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{conn: conn, logger: log}
}

func (p *Publisher) Publish(ctx context.Context, topic string, message []byte) error {
	routingKey := RoutingKey(topic)
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         message,
		DeliveryMode: amqp091.Transient,
		Timestamp:    time.Now(),
	}

	p.conn.mu.Lock()
	defer p.conn.mu.Unlock()

	if p.conn.isClosed() {
		if err := p.conn.reopen(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	err := p.conn.channel.PublishWithContext(ctx,
		p.conn.exchange, // exchange
		routingKey,      // routing key
		false,           // mandatory
		false,           // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}

	p.logger.Debug("message_published", "Published message to exchange", "", map[string]interface{}{
		"exchange":     p.conn.exchange,
		"routing_key":  routingKey,
		"message_size": len(message),
	})
	return nil
}
