package fanout

import (
	"context"
	"time"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

// ListenerConfig tunes the reconnect loop.
type ListenerConfig struct {
	Pattern        string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PollTimeout    time.Duration
}

// DefaultListenerConfig subscribes to every restaurant and backs off 1s, 2s,
// 4s, 5s, 5s, ...
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Pattern:        DefaultPattern,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		PollTimeout:    time.Second,
	}
}

// Listener is the per-process background task that forwards every envelope
// on the channel to the local registry. It only stops when its context is
// cancelled.
type Listener struct {
	subscriber  Subscriber
	broadcaster Broadcaster
	cfg         ListenerConfig
	log         *logger.Logger

	wait func(ctx context.Context, d time.Duration) error
}

func NewListener(subscriber Subscriber, broadcaster Broadcaster, cfg ListenerConfig, log *logger.Logger) *Listener {
	def := DefaultListenerConfig()
	if cfg.Pattern == "" {
		cfg.Pattern = def.Pattern
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	return &Listener{
		subscriber:  subscriber,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
		wait:        sleepContext,
	}
}

// Run subscribes and forwards messages until ctx is cancelled, reconnecting
// with exponential backoff after every failure. It returns nil on
// cancellation.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.cfg.InitialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		subscribed, err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("fanout_listener_stopped", "Fanout listener stopped", "", map[string]interface{}{
				"pattern": l.cfg.Pattern,
			})
			return nil
		}
		if subscribed {
			backoff = l.cfg.InitialBackoff
		}

		l.log.Error("fanout_listener_failed", "Fanout subscription failed, reconnecting", "", err, map[string]interface{}{
			"pattern":    l.cfg.Pattern,
			"backoff_ms": backoff.Milliseconds(),
		})
		if err := l.wait(ctx, backoff); err != nil {
			return nil
		}
		backoff = NextBackoff(backoff, l.cfg.MaxBackoff)
	}
}

// listen runs one subscription until it fails. subscribed reports whether the
// subscription was established, which resets the backoff.
func (l *Listener) listen(ctx context.Context) (subscribed bool, err error) {
	sub, err := l.subscriber.Subscribe(ctx, l.cfg.Pattern)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			l.log.Debug("fanout_subscription_close", "Closing subscription failed", "", map[string]interface{}{
				"error": cerr.Error(),
			})
		}
	}()

	l.log.Info("fanout_subscribed", "Subscribed to event channel", "", map[string]interface{}{
		"pattern": l.cfg.Pattern,
	})

	for {
		msg, err := sub.ReceiveMessage(ctx, l.cfg.PollTimeout)
		if err != nil {
			return true, err
		}
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		if msg == nil {
			continue
		}
		restaurantID := RestaurantFromTopic(msg.Topic)
		if restaurantID == "" {
			l.log.Warn("fanout_unroutable", "Dropping message on unexpected channel", "", map[string]interface{}{
				"topic": msg.Topic,
			})
			continue
		}
		l.broadcaster.Broadcast(ctx, restaurantID, msg.Payload)
	}
}

// NextBackoff doubles d, capped at max.
func NextBackoff(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
