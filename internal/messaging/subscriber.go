package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Vivek-k24/foodbiz/internal/fanout"
	"github.com/Vivek-k24/foodbiz/internal/logger"
)

// RoutingKey maps a fanout topic such as events:rst_001 to events.rst_001.
func RoutingKey(topic string) string {
	if restaurantID := fanout.RestaurantFromTopic(topic); restaurantID != "" {
		return "events." + restaurantID
	}
	return topic
}

// TopicFromRoutingKey reverses RoutingKey.
func TopicFromRoutingKey(key string) string {
	if restaurantID, ok := strings.CutPrefix(key, "events."); ok && restaurantID != "" {
		return fanout.Topic(restaurantID)
	}
	return key
}

// BindingKey maps a subscription pattern such as events:* to the AMQP
// binding events.*. AMQP's * matches one word, so restaurant ids must not
// contain dots.
func BindingKey(pattern string) string {
	return RoutingKey(pattern)
}

// Subscriber opens each subscription on its own connection with an exclusive
// auto-delete queue bound to the exchange. It satisfies fanout.Subscriber.
type Subscriber struct {
	url      string
	exchange string
	logger   *logger.Logger
}

func NewSubscriber(conn *Connection, log *logger.Logger) *Subscriber {
	return &Subscriber{url: conn.url, exchange: conn.exchange, logger: log}
}

func (s *Subscriber) Subscribe(_ context.Context, pattern string) (fanout.Subscription, error) {
	conn, err := amqp091.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	sub, err := s.consume(conn, BindingKey(pattern))
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.logger.Info("consumer_started", "Started consuming events", "", map[string]interface{}{
		"exchange":    s.exchange,
		"binding_key": BindingKey(pattern),
	})
	return sub, nil
}

func (s *Subscriber) consume(conn *amqp091.Connection, bindingKey string) (*subscription, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, s.exchange); err != nil {
		return nil, err
	}
	queue, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, bindingKey, s.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue with routing key %s: %w", bindingKey, err)
	}
	deliveries, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return &subscription{conn: conn, channel: ch, deliveries: deliveries}, nil
}

type subscription struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	deliveries <-chan amqp091.Delivery
}

func (s *subscription) ReceiveMessage(ctx context.Context, timeout time.Duration) (*fanout.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case d, ok := <-s.deliveries:
		if !ok {
			return nil, fanout.ErrSubscriptionClosed
		}
		return &fanout.Message{Topic: TopicFromRoutingKey(d.RoutingKey), Payload: d.Body}, nil
	}
}

func (s *subscription) Close() error {
	var errs []error
	if s.channel != nil {
		errs = append(errs, ignoreClosed(s.channel.Close()))
	}
	if s.conn != nil {
		errs = append(errs, ignoreClosed(s.conn.Close()))
	}
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp091.ErrClosed) {
		return nil
	}
	return err
}
