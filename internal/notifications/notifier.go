// Package notifications publishes escrow lifecycle events into Redis channels.
// Delivery is fire-and-forget: publish failures are the caller's to log, and
// never unwind a committed state transition.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Escrow lifecycle event names carried in every published payload.
const (
	EventMilestoneStarted   = "milestone.started"
	EventMilestoneCompleted = "milestone.completed"
	EventPaymentRequested   = "payment.requested"
	EventFundsReleased      = "funds.released"
	EventChangesRequested   = "changes.requested"
	EventDisputeOpened      = "dispute.opened"
	EventDisputeResolved    = "dispute.resolved"
	EventFolderUnlocked     = "folder.unlocked"
)

// Event is the wire payload published for every lifecycle change.
type Event struct {
	Name        string    `json:"name"`
	ProjectID   uint      `json:"project_id"`
	MilestoneID uint      `json:"milestone_id"`
	ActorUserID uint      `json:"actor_user_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier provides helpers to publish escrow events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client yields a no-op notifier, which tests and offline tooling rely on.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishEvent sends a lifecycle event to the owning project's channel.
func (n *Notifier) PublishEvent(ctx context.Context, event Event) error {
	if n.rdb == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, ProjectChannel(event.ProjectID), string(payload)).Err()
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartEventSubscriber subscribes to every project channel and calls onMessage
// for each incoming event. onMessage receives channel and payload.
func (n *Notifier) StartEventSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "escrow:project:*", "notifications:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in EventSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ProjectChannel derives the Redis channel name for a project's event stream.
func ProjectChannel(projectID uint) string {
	return "escrow:project:" + strconv.FormatUint(uint64(projectID), 10)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
