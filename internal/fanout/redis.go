package fanout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes envelopes with PUBLISH.
type RedisPublisher struct {
	rc *redis.Client
}

func NewRedisPublisher(rc *redis.Client) *RedisPublisher {
	return &RedisPublisher{rc: rc}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, message []byte) error {
	if err := p.rc.Publish(ctx, topic, message).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// RedisSubscriber opens every subscription on its own client so a broken
// connection is dropped together with the subscription.
type RedisSubscriber struct {
	opts *redis.Options
}

func NewRedisSubscriber(opts *redis.Options) *RedisSubscriber {
	return &RedisSubscriber{opts: opts}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	rc := redis.NewClient(s.opts)
	ps := rc.PSubscribe(ctx, pattern)
	// The first reply confirms the subscription or surfaces the dial error.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		_ = rc.Close()
		return nil, fmt.Errorf("redis psubscribe %s: %w", pattern, err)
	}
	return &redisSubscription{rc: rc, ps: ps}, nil
}

type redisSubscription struct {
	rc *redis.Client
	ps *redis.PubSub
}

func (s *redisSubscription) ReceiveMessage(ctx context.Context, timeout time.Duration) (*Message, error) {
	msg, err := s.ps.ReceiveTimeout(ctx, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrSubscriptionClosed
		}
		return nil, err
	}
	switch m := msg.(type) {
	case *redis.Message:
		return &Message{Topic: m.Channel, Payload: []byte(m.Payload)}, nil
	default:
		// subscription confirmations and pongs
		return nil, nil
	}
}

func (s *redisSubscription) Close() error {
	return errors.Join(s.ps.Close(), s.rc.Close())
}
