package notification

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

const (
	// defaultBroadcastTimeout bounds one Broadcast call. A display that cannot
	// take a message within it is dropped.
	defaultBroadcastTimeout = 2 * time.Second
	maxConcurrentSends      = 32
)

// Conn is a live display connection.
type Conn interface {
	Send(ctx context.Context, message []byte) error
	Close() error
}

// Registry tracks live connections per restaurant and fans messages out to
// them. All map access goes through mu; sends never happen while it is held.
type Registry struct {
	mu           sync.Mutex
	byRestaurant map[string]map[Conn]struct{}
	restaurantOf map[Conn]string

	timeout time.Duration
	logger  *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		byRestaurant: make(map[string]map[Conn]struct{}),
		restaurantOf: make(map[Conn]string),
		timeout:      defaultBroadcastTimeout,
		logger:       log,
	}
}

// Register adds conn to the set of restaurantID. A connection registered
// again under another restaurant moves there.
func (r *Registry) Register(conn Conn, restaurantID string) {
	r.mu.Lock()
	if prev, ok := r.restaurantOf[conn]; ok {
		r.removeLocked(conn, prev)
	}
	set, ok := r.byRestaurant[restaurantID]
	if !ok {
		set = make(map[Conn]struct{})
		r.byRestaurant[restaurantID] = set
	}
	set[conn] = struct{}{}
	r.restaurantOf[conn] = restaurantID
	total := len(set)
	r.mu.Unlock()

	r.logger.Info("ws_client_connected", "Display connected", "", map[string]interface{}{
		"restaurant_id": restaurantID,
		"connections":   total,
	})
}

// Unregister removes conn. Unknown connections are ignored.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	restaurantID, ok := r.restaurantOf[conn]
	if ok {
		r.removeLocked(conn, restaurantID)
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info("ws_client_disconnected", "Display disconnected", "", map[string]interface{}{
			"restaurant_id": restaurantID,
		})
	}
}

func (r *Registry) removeLocked(conn Conn, restaurantID string) {
	delete(r.restaurantOf, conn)
	set := r.byRestaurant[restaurantID]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.byRestaurant, restaurantID)
	}
}

// Broadcast sends message to every connection of restaurantID registered at
// the time of the call. Sends run concurrently and share one deadline, so a
// slow display delays the call by at most the broadcast timeout and never
// holds back the others. Connections whose send fails are unregistered and
// closed once every target has been tried.
func (r *Registry) Broadcast(ctx context.Context, restaurantID string, message []byte) {
	targets := r.snapshot(restaurantID)
	if len(targets) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		stale []Conn
		g     errgroup.Group
	)
	g.SetLimit(maxConcurrentSends)
	for _, conn := range targets {
		g.Go(func() error {
			if err := conn.Send(ctx, message); err != nil {
				r.logger.Debug("ws_send_failed", "Dropping display connection", "", map[string]interface{}{
					"restaurant_id": restaurantID,
					"error":         err.Error(),
				})
				mu.Lock()
				stale = append(stale, conn)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, conn := range stale {
		r.Unregister(conn)
		_ = conn.Close()
	}

	r.logger.Debug("notification_broadcast", "Event delivered to displays", "", map[string]interface{}{
		"restaurant_id": restaurantID,
		"delivered":     len(targets) - len(stale),
		"dropped":       len(stale),
	})
}

func (r *Registry) snapshot(restaurantID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byRestaurant[restaurantID]
	out := make([]Conn, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Count reports how many connections are registered for restaurantID.
func (r *Registry) Count(restaurantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRestaurant[restaurantID])
}
