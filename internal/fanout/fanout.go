// Package fanout carries event envelopes from the process that committed a
// change to every process hosting live display connections.
package fanout

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TopicPrefix scopes channels per restaurant: events:{restaurantId}.
const TopicPrefix = "events:"

// DefaultPattern matches every restaurant channel.
const DefaultPattern = TopicPrefix + "*"

// Topic names the channel for a restaurant.
func Topic(restaurantID string) string {
	return TopicPrefix + restaurantID
}

// RestaurantFromTopic extracts the restaurant id from a channel name, or ""
// when the channel is not a restaurant channel.
func RestaurantFromTopic(topic string) string {
	if !strings.HasPrefix(topic, TopicPrefix) {
		return ""
	}
	return strings.TrimPrefix(topic, TopicPrefix)
}

// ErrSubscriptionClosed is returned by a Subscription whose underlying
// delivery stream has ended.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Message is one envelope received from the channel.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher pushes a serialized envelope onto a topic. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

// Subscriber opens a pattern subscription on a fresh connection.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string) (Subscription, error)
}

// Subscription is a live pattern subscription.
//
// ReceiveMessage blocks for at most timeout and returns (nil, nil) when
// nothing arrived in that window. Any error means the subscription is no
// longer usable. Close releases the subscription and its connection.
type Subscription interface {
	ReceiveMessage(ctx context.Context, timeout time.Duration) (*Message, error)
	Close() error
}

// Broadcaster delivers a message to the local connections of a restaurant.
type Broadcaster interface {
	Broadcast(ctx context.Context, restaurantID string, message []byte)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, message []byte) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, message []byte) error {
	return f(ctx, topic, message)
}
