package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Vivek-k24/foodbiz/internal/logger"
)

type recordedBroadcast struct {
	restaurantID string
	message      string
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	got  []recordedBroadcast
	seen chan struct{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{seen: make(chan struct{}, 16)}
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, restaurantID string, message []byte) {
	b.mu.Lock()
	b.got = append(b.got, recordedBroadcast{restaurantID: restaurantID, message: string(message)})
	b.mu.Unlock()
	b.seen <- struct{}{}
}

func (b *fakeBroadcaster) all() []recordedBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedBroadcast(nil), b.got...)
}

// scriptedSubscriber fails the first n Subscribe calls, then hands out a
// subscription that replays msgs and afterwards reports poll timeouts.
type scriptedSubscriber struct {
	mu       sync.Mutex
	failures int
	calls    int
	msgs     []*Message
	closed   int
}

func (s *scriptedSubscriber) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("connection refused")
	}
	return &scriptedSubscription{parent: s, msgs: append([]*Message(nil), s.msgs...)}, nil
}

type scriptedSubscription struct {
	parent *scriptedSubscriber
	msgs   []*Message
}

func (s *scriptedSubscription) ReceiveMessage(ctx context.Context, timeout time.Duration) (*Message, error) {
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		return m, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (s *scriptedSubscription) Close() error {
	s.parent.mu.Lock()
	s.parent.closed++
	s.parent.mu.Unlock()
	return nil
}

func TestNextBackoff(t *testing.T) {
	d := time.Second
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, d)
		d = NextBackoff(d, 5*time.Second)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backoff[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestListenerRetriesWithBackoffThenDelivers(t *testing.T) {
	sub := &scriptedSubscriber{
		failures: 4,
		msgs: []*Message{
			{Topic: "events:rst_001", Payload: []byte(`{"event_type":"order.placed"}`)},
			{Topic: "unrelated", Payload: []byte(`x`)},
			{Topic: "events:rst_002", Payload: []byte(`{"event_type":"order.ready"}`)},
		},
	}
	b := newFakeBroadcaster()
	l := NewListener(sub, b, DefaultListenerConfig(), logger.Discard())
	l.cfg.PollTimeout = 10 * time.Millisecond

	var mu sync.Mutex
	var waits []time.Duration
	l.wait = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-b.seen:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v, want %v", waits, want)
		}
	}

	got := b.all()
	if len(got) != 2 || got[0].restaurantID != "rst_001" || got[1].restaurantID != "rst_002" {
		t.Fatalf("unexpected broadcasts %+v", got)
	}
	if sub.closed != 1 {
		t.Fatalf("expected the subscription to be closed once, got %d", sub.closed)
	}
}

func TestListenerKeepsPollingOnTimeouts(t *testing.T) {
	sub := &scriptedSubscriber{}
	b := newFakeBroadcaster()
	l := NewListener(sub, b, ListenerConfig{PollTimeout: 5 * time.Millisecond}, logger.Discard())
	l.wait = func(ctx context.Context, d time.Duration) error {
		t.Errorf("unexpected reconnect wait %v", d)
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("expected a single subscription, got %d", sub.calls)
	}
}

func TestListenerStopsWhileBackingOff(t *testing.T) {
	sub := &scriptedSubscriber{failures: 1 << 30}
	l := NewListener(sub, newFakeBroadcaster(), ListenerConfig{InitialBackoff: time.Hour, MaxBackoff: time.Hour}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("listener blocked in backoff after cancellation")
	}
}

func TestRestaurantFromTopic(t *testing.T) {
	if got := RestaurantFromTopic(Topic("rst_001")); got != "rst_001" {
		t.Fatalf("unexpected restaurant %q", got)
	}
	if got := RestaurantFromTopic("orders:rst_001"); got != "" {
		t.Fatalf("expected empty restaurant, got %q", got)
	}
}
