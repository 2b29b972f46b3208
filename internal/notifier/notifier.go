package notifier

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Kind is the name of an outbound notification.
type Kind string

const (
	TrailCompleted    Kind = "TRAIL_COMPLETED"
	RewardUnlocked    Kind = "REWARD_UNLOCKED"
	RewardRedeemed    Kind = "REWARD_REDEEMED"
	AchievementEarned Kind = "ACHIEVEMENT_EARNED"
)

// Event is emitted after the state change it describes has been committed.
type Event struct {
	Kind          Kind      `json:"kind"`
	UserID        uint      `json:"user_id"`
	TrailID       string    `json:"trail_id,omitempty"`
	RewardID      string    `json:"reward_id,omitempty"`
	AchievementID string    `json:"achievement_id,omitempty"`
	At            time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
