package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/config"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/database"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
	"gorm.io/gorm"
)

func useMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	cfg := &config.Config{RevealWindowSeconds: 120, RevealTickMillis: 1000}
	prev := openDB
	openDB = func() (*gorm.DB, *config.Config, error) { return db, cfg, nil }
	t.Cleanup(func() { openDB = prev })
	return db
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("passctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestSeedIsIdempotent(t *testing.T) {
	db := useMemoryDB(t)
	run(t, "seed")
	out := run(t, "seed")
	if !strings.HasPrefix(out, "seeded ") {
		t.Errorf("unexpected output %q", out)
	}
	var n int64
	db.Model(&models.Trail{}).Count(&n)
	if n != 3 {
		t.Errorf("expected 3 trails, got %d", n)
	}
}

func TestExpireRedeemsStaleReveals(t *testing.T) {
	db := useMemoryDB(t)
	run(t, "seed")

	started := time.Now().Add(-10 * time.Minute)
	db.Create(&models.UserReward{
		UserID: 1, RewardID: "r4", Status: domain.StatusRevealStarted,
		Progress: 5, RevealStartedAt: &started, CodeRevealed: true,
	})

	if out := run(t, "expire"); !strings.Contains(out, "redeemed 1 ") {
		t.Errorf("unexpected output %q", out)
	}
	var ur models.UserReward
	db.Where("reward_id = ?", "r4").First(&ur)
	if ur.Status != domain.StatusRedeemed {
		t.Errorf("expected REDEEMED, got %s", ur.Status)
	}
}

func TestProgress(t *testing.T) {
	db := useMemoryDB(t)
	run(t, "seed")
	if _, _, err := trail.NewEngine(db, domain.SystemClock()).VisitShop(context.Background(), "t1", "4", 7); err != nil {
		t.Fatalf("VisitShop returned error: %v", err)
	}

	var s trail.Summary
	if err := json.Unmarshal([]byte(run(t, "progress", "--user", "7", "--trail", "t1")), &s); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if s != (trail.Summary{Total: 3, Visited: 1, Percentage: 33}) {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestKeysCreate(t *testing.T) {
	db := useMemoryDB(t)
	run(t, "seed")
	out := run(t, "keys", "create", "--shop", "3", "--provider", "square")
	var key models.IntegrationKey
	if err := db.First(&key).Error; err != nil {
		t.Fatalf("no key stored: %v", err)
	}
	if !strings.Contains(out, key.Prefix+".") {
		t.Errorf("output %q does not carry the key", out)
	}
}

func TestStreaksResetsLapsedUsers(t *testing.T) {
	db := useMemoryDB(t)
	lastWeek := time.Now().UTC().AddDate(0, 0, -7)
	today := time.Now().UTC()
	lapsed := models.User{Username: "lapsed", Level: 1, LastCheckinAt: &lastWeek}
	lapsed.Stats.CurrentStreak, lapsed.Stats.LongestStreak = 4, 4
	active := models.User{Username: "active", Level: 1, LastCheckinAt: &today}
	active.Stats.CurrentStreak, active.Stats.LongestStreak = 2, 2
	db.Create(&lapsed)
	db.Create(&active)

	if out := run(t, "streaks"); !strings.Contains(out, "reset 1 ") {
		t.Errorf("unexpected output %q", out)
	}
	db.First(&lapsed, lapsed.ID)
	db.First(&active, active.ID)
	if lapsed.Stats.CurrentStreak != 0 || lapsed.Stats.LongestStreak != 4 {
		t.Errorf("lapsed user streak = %d (longest %d)", lapsed.Stats.CurrentStreak, lapsed.Stats.LongestStreak)
	}
	if active.Stats.CurrentStreak != 2 {
		t.Errorf("active user streak changed to %d", active.Stats.CurrentStreak)
	}
}

func TestXPKeepsLevel(t *testing.T) {
	db := useMemoryDB(t)
	u := models.User{Username: "regular", Level: 1}
	db.Create(&u)
	id := strconv.FormatUint(uint64(u.ID), 10)

	if out := run(t, "xp", "--user", id, "--delta", "1200"); !strings.Contains(out, "xp 1200, level 3") {
		t.Errorf("unexpected output %q", out)
	}
	if out := run(t, "xp", "--user", id, "--delta=-5000"); !strings.Contains(out, "xp 0, level 3") {
		t.Errorf("unexpected output %q", out)
	}
}
