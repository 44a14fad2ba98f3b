package fanout

import (
	"context"
	"time"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

// Notifier publishes envelopes after their change has been committed. It
// never reports failure to the caller: the store is the source of truth and a
// lost notification only delays displays until they refetch.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration
	logger    *logger.Logger
}

func NewNotifier(publisher Publisher, timeout time.Duration, log *logger.Logger) *Notifier {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Notifier{publisher: publisher, timeout: timeout, logger: log}
}

func (n *Notifier) Notify(ctx context.Context, env models.EventEnvelope) {
	fields := map[string]interface{}{
		"event_id":      env.EventID,
		"event_type":    env.EventType,
		"restaurant_id": env.RestaurantID,
	}
	requestID := ""
	if env.RequestID != nil {
		requestID = *env.RequestID
	}

	data, err := env.Marshal()
	if err != nil {
		n.logger.Error("event_encode_failed", "Failed to encode event", requestID, err, fields)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.publisher.Publish(pubCtx, Topic(env.RestaurantID), data); err != nil {
		n.logger.Error("event_publish_failed", "Failed to publish event", requestID, err, fields)
		return
	}
	n.logger.Debug("event_published", "Event published", requestID, fields)
}
