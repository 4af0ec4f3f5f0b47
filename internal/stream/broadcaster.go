// ABOUTME: In-memory fan-out broadcaster for committed store changes
// ABOUTME: Subscribers register a watch key and receive a Change per visible state transition

package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// ChangeKind identifies which entity table a change touched
type ChangeKind string

const (
	KindIdentity ChangeKind = "identity"
	KindInstance ChangeKind = "instance"
	KindAccount  ChangeKind = "account"
	KindStatus   ChangeKind = "status"
	KindPoll     ChangeKind = "poll"
)

// Change describes one committed state transition for a cached entity.
// One transaction commit produces one Change per entity it touched.
type Change struct {
	Kind    ChangeKind
	ID      string
	Deleted bool
}

// Key returns the watch key subscribers use to receive this change.
func (c Change) Key() string {
	return string(c.Kind) + ":" + c.ID
}

// Broadcaster provides in-memory pub/sub for committed store changes.
// Subscribers register a watch key ("status:42", "account:7") and receive a
// Change after every transaction that alters that entity.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Change // watchKey -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Change),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for changes on the given watch key.
// Returns a channel that receives changes and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled. The channel never closes on its own; detaching is the only way
// a stream ends.
func (b *Broadcaster) Subscribe(ctx context.Context, key string) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[key]; !ok {
		b.subscribers[key] = make(map[string]chan Change)
	}
	b.subscribers[key][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "key", key, "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(key, subID)
	}()

	return ch, subID
}

// Publish sends a change to all subscribers of its watch key.
// Non-blocking: changes are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(change Change) {
	key := change.Key()

	b.mu.RLock()
	subs, ok := b.subscribers[key]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}

	// Copy subscriber channels under read lock to avoid holding lock during sends
	targets := make([]chan Change, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- change:
			// Sent
		default:
			// Subscriber channel full — drop change for this subscriber
			b.logger.Debug("dropped change for slow subscriber", "key", key)
		}
	}
}

// PublishAll publishes each change in order.
func (b *Broadcaster) PublishAll(changes []Change) {
	for _, c := range changes {
		b.Publish(c)
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(key, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[key]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty watch key entries
	if len(subs) == 0 {
		delete(b.subscribers, key)
	}

	b.logger.Debug("subscriber removed", "key", key, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, key)
	}

	b.logger.Debug("broadcaster closed")
}
