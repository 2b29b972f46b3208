package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Event) error { return f.err }

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("boom")
	m := Multi{rec, nil, failingNotifier{err: boom}}

	err := m.Notify(context.Background(), Event{Kind: RewardUnlocked, UserID: 1, RewardID: "r4"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
	if rec.Count(RewardUnlocked) != 1 {
		t.Errorf("expected recorder to receive the event, got %d", rec.Count(RewardUnlocked))
	}
}

func TestFormatMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		event Event
		want  string
	}{
		{Event{Kind: TrailCompleted, UserID: 7, TrailID: "t1"}, "**Trail:** t1"},
		{Event{Kind: RewardUnlocked, UserID: 7, RewardID: "r4"}, "**Reward:** r4"},
		{Event{Kind: RewardRedeemed, UserID: 7, RewardID: "r5", At: at}, "2024-05-01 09:30:00"},
		{Event{Kind: AchievementEarned, UserID: 7, AchievementID: "first-checkin"}, "first-checkin"},
	}
	for _, tc := range cases {
		got := FormatMessage(tc.event)
		if !strings.Contains(got, tc.want) {
			t.Errorf("%s: expected message to contain %q, got %q", tc.event.Kind, tc.want, got)
		}
	}
}

func TestDiscordNotifier_NilSession(t *testing.T) {
	n := NewDiscordNotifier(nil, "123")
	if err := n.Notify(context.Background(), Event{Kind: TrailCompleted}); err == nil {
		t.Fatal("expected error for nil session")
	}
}
