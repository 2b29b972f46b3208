// Package reward drives the per-user reward lifecycle:
// LOCKED -> UNLOCKED -> REVEAL_STARTED -> REDEEMED.
//
// The functions in this file are pure transitions over a UserReward snapshot. Engine persists
// their results and owns the reveal countdown.
package reward

import (
	"fmt"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

// New returns the implicit LOCKED record for a user and reward with no stored state.
func New(userID uint, rewardID string) models.UserReward {
	return models.UserReward{UserID: userID, RewardID: rewardID, Status: domain.StatusLocked}
}

// Clamp limits an observed counter value to [0, total].
func Clamp(observed, total int) int {
	if total < 0 {
		total = 0
	}
	return min(max(observed, 0), total)
}

// Advance applies an observed counter value. Progress only grows and unlock happens once;
// the returned bool reports whether this call unlocked the reward.
func Advance(ur models.UserReward, r models.Reward, observed int, now time.Time) (models.UserReward, bool) {
	if p := Clamp(observed, r.Total); p > ur.Progress {
		ur.Progress = p
	}
	if ur.Status != domain.StatusLocked || ur.Progress < r.Total {
		return ur, false
	}
	ur.Status = domain.StatusUnlocked
	ur.UnlockedAt = &now
	return ur, true
}

// Unlock satisfies the reward from an external trigger such as a completed trail.
func Unlock(ur models.UserReward, r models.Reward, now time.Time) (models.UserReward, bool) {
	return Advance(ur, r, r.Total, now)
}

// StartReveal opens the one-time reveal window.
func StartReveal(ur models.UserReward, now time.Time) (models.UserReward, error) {
	if ur.Status != domain.StatusUnlocked || ur.CodeRevealed {
		return ur, fmt.Errorf("reveal reward %q in state %s: %w", ur.RewardID, ur.Status, domain.ErrInvalidStateTransition)
	}
	ur.Status = domain.StatusRevealStarted
	ur.RevealStartedAt = &now
	ur.CodeRevealed = true
	return ur, nil
}

// Confirm ends an active reveal session.
func Confirm(ur models.UserReward, now time.Time) (models.UserReward, error) {
	if ur.Status != domain.StatusRevealStarted {
		return ur, fmt.Errorf("confirm reward %q in state %s: %w", ur.RewardID, ur.Status, domain.ErrNoActiveRedemption)
	}
	ur.Status = domain.StatusRedeemed
	ur.RedeemedAt = &now
	return ur, nil
}

// Expire redeems a reveal session whose window has run out. The redemption time is the end of
// the window, not the moment the expiry was noticed.
func Expire(ur models.UserReward, now time.Time, window time.Duration) (models.UserReward, bool) {
	if ur.Status != domain.StatusRevealStarted || ur.RevealStartedAt == nil {
		return ur, false
	}
	if Remaining(ur, now, window) > 0 {
		return ur, false
	}
	end := ur.RevealStartedAt.Add(window)
	ur.Status = domain.StatusRedeemed
	ur.RedeemedAt = &end
	return ur, true
}

// Abandon is never allowed once a reveal has started; the session can only end in REDEEMED.
func Abandon(ur models.UserReward) error {
	if ur.Status == domain.StatusRevealStarted {
		return fmt.Errorf("abandon reward %q: reveal in progress: %w", ur.RewardID, domain.ErrInvalidStateTransition)
	}
	return nil
}

// Remaining is max(0, window - (now - revealStartedAt)) for an active reveal, 0 otherwise.
func Remaining(ur models.UserReward, now time.Time, window time.Duration) time.Duration {
	if ur.Status != domain.StatusRevealStarted || ur.RevealStartedAt == nil {
		return 0
	}
	return max(window-now.Sub(*ur.RevealStartedAt), 0)
}

// Percentage is the display progress of ur toward r.Total.
func Percentage(ur models.UserReward, r models.Reward) int {
	return domain.Percentage(Clamp(ur.Progress, r.Total), r.Total)
}
