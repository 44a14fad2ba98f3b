// Package messaging runs the event fanout over a RabbitMQ topic exchange.
// Topics map to routing keys by replacing the "events:" prefix with "events.".
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Vivek-k24/foodbiz/internal/config"
	"github.com/Vivek-k24/foodbiz/internal/logger"
)

const connectAttempts = 5

// Connection wraps a RabbitMQ connection and one channel with reconnection
// logic. Publishing on the channel is serialized by mu.
type Connection struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	url      string
	exchange string
	logger   *logger.Logger
}

// Dial connects and declares the events exchange, retrying with a linear
// backoff until ctx is cancelled or the attempts run out.
func Dial(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		url:      cfg.RabbitMQURL(),
		exchange: cfg.RabbitMQ.Exchange,
		logger:   log,
	}
	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect(ctx context.Context) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = c.open(); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectAttempts, err)
		}

		wait := time.Duration(attempt) * 2 * time.Second
		c.logger.Error("rabbitmq_connection_failed",
			fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", wait),
			"startup", err, map[string]interface{}{"attempt": attempt})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Connection) open() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := declareExchange(ch, c.exchange); err != nil {
		c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", err, nil)
		ch.Close()
		conn.Close()
		return err
	}
	c.conn, c.channel = conn, ch
	return nil
}

func declareExchange(ch *amqp091.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", exchange, err)
	}
	return nil
}

// Exchange is the name of the declared topic exchange.
func (c *Connection) Exchange() string {
	return c.exchange
}

// Ping reports whether the connection is usable, for health checks.
func (c *Connection) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// isClosed must be called with mu held.
func (c *Connection) isClosed() bool {
	return c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed()
}

// reopen replaces a broken connection with a single attempt. It must be
// called with mu held.
func (c *Connection) reopen() error {
	c.close()
	return c.open()
}
