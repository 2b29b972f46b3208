// Package stats owns the per-user counters: check-ins, streaks, points, xp and level, and the
// achievements derived from them.
package stats

import (
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

// Level is floor(xp / XPPerLevel) + 1.
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/domain.XPPerLevel + 1
}

// ApplyXP adds delta to the user's xp; a negative delta reduces xp but never the level.
func ApplyXP(u *models.User, delta int) {
	u.XP += delta
	if u.XP < 0 {
		u.XP = 0
	}
	if l := Level(u.XP); l > u.Level {
		u.Level = l
	}
	if u.Level < 1 {
		u.Level = 1
	}
}

// ApplyPoints adds n points, flooring the balance at zero.
func ApplyPoints(u *models.User, n int) {
	u.Stats.Points += n
	if u.Stats.Points < 0 {
		u.Stats.Points = 0
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplyStreak advances the day streak for a check-in at `at`. Another check-in on the same
// day leaves it unchanged, the next calendar day extends it, a gap restarts it at one.
func ApplyStreak(u *models.User, at time.Time) {
	if u.LastCheckinAt == nil {
		u.Stats.CurrentStreak = 1
	} else {
		gap := int(day(at).Sub(day(*u.LastCheckinAt)).Hours() / 24)
		switch {
		case gap == 0:
			if u.Stats.CurrentStreak == 0 {
				u.Stats.CurrentStreak = 1
			}
		case gap == 1:
			u.Stats.CurrentStreak++
		case gap > 1:
			u.Stats.CurrentStreak = 1
		}
	}
	if u.Stats.CurrentStreak > u.Stats.LongestStreak {
		u.Stats.LongestStreak = u.Stats.CurrentStreak
	}
	if u.LastCheckinAt == nil || at.After(*u.LastCheckinAt) {
		u.LastCheckinAt = &at
	}
}

// Counter reads the user counter behind a metric. Metrics that need a shop or trail scope
// report false.
func Counter(u models.User, m domain.Metric) (int, bool) {
	switch m {
	case domain.MetricCheckins:
		return u.Stats.TotalCheckins, true
	case domain.MetricShops:
		return u.Stats.UniqueShopsVisited, true
	case domain.MetricStreak:
		return u.Stats.CurrentStreak, true
	case domain.MetricTrails:
		return u.Stats.TrailsCompleted, true
	case domain.MetricPoints:
		return u.Stats.Points, true
	}
	return 0, false
}

// Earned reports whether the user's counters satisfy the achievement.
func Earned(u models.User, a models.Achievement) bool {
	v, ok := Counter(u, a.RequirementType)
	return ok && v >= a.Requirement
}
