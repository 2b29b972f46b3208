package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/catalog"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/config"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/database"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/feed"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/notifier"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/reward"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type testServer struct {
	*httptest.Server
	db      *gorm.DB
	user    models.User
	token   string
	rewards *reward.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if err := cat.Seed(db); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
	user := models.User{DiscordID: "42", Username: "coffeelover", Level: 1}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	clock := domain.SystemClock()
	feedService := feed.NewService(db, clock)
	notifiers := notifier.Multi{feedService}
	statsService := stats.NewService(db, clock, stats.Options{XPPerCheckin: 50, PointsPerCheckin: 10})
	trailEngine := trail.NewEngine(db, clock)
	rewardEngine := reward.NewEngine(db, notifiers, clock, reward.Options{Window: 120 * time.Second, Tick: 10 * time.Millisecond})
	t.Cleanup(rewardEngine.Close)
	passService := pass.NewService(db, pass.Deps{
		Stats:    statsService,
		Trails:   trailEngine,
		Rewards:  rewardEngine,
		Feed:     feedService,
		Notifier: notifiers,
		Clock:    clock,
	}, pass.Options{TrailCompletionXP: 250})

	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	r := chi.NewRouter()
	RegisterRoutes(r, Handlers{
		Auth:         authHandler,
		Shops:        NewShopHandler(db, statsService),
		Checkins:     NewCheckinHandler(passService),
		Trails:       NewTrailHandler(trailEngine, passService),
		Rewards:      NewRewardHandler(rewardEngine, passService),
		Achievements: NewAchievementHandler(db, statsService),
		Feed:         NewFeedHandler(feedService),
		POS:          NewPOSHandler(passService),
	}, "")

	token, err := authHandler.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db, user: user, token: token, rewards: rewardEngine}
}

// do sends a request with the test user's session cookie and decodes a successful JSON
// response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, body string, out any, opts ...func(*http.Request)) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: s.token})
	for _, opt := range opts {
		opt(req)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func anonymous(req *http.Request) {
	req.Header.Del("Cookie")
}

func expectSuccess(t *testing.T, what string, code int) {
	t.Helper()
	if code < 200 || code >= 300 {
		t.Fatalf("%s: expected success, got %d", what, code)
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}

	var shops []models.Shop
	expectSuccess(t, "GET /shops", s.do(t, "GET", "/shops?q=sump", "", &shops, anonymous))
	if len(shops) != 1 || shops[0].ID != "1" {
		t.Errorf("search for sump returned %v", shops)
	}

	var nearby []catalog.NearbyShop
	expectSuccess(t, "GET /shops/nearby", s.do(t, "GET", "/shops/nearby?lat=38.6270&lng=-90.1994&radius=50", "", &nearby, anonymous))
	for i := 1; i < len(nearby); i++ {
		if nearby[i].DistanceMiles < nearby[i-1].DistanceMiles {
			t.Fatalf("nearby shops not sorted by distance")
		}
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/me", "/rewards", "/trails", "/achievements"} {
		if code := s.do(t, "GET", path, "", nil, anonymous); code != http.StatusUnauthorized {
			t.Errorf("GET %s without session = %d, want 401", path, code)
		}
	}

	var me models.User
	expectSuccess(t, "GET /me", s.do(t, "GET", "/me", "", &me))
	if me.Username != "coffeelover" {
		t.Errorf("me = %+v", me)
	}
}

func TestCheckinAndTrailProgress(t *testing.T) {
	s := newTestServer(t)

	var res pass.Result
	expectSuccess(t, "POST /checkins", s.do(t, "POST", "/checkins", `{"shop_id":"1","rating":5,"note":"great"}`, &res))
	if res.CheckIn == nil || res.User == nil || res.User.Stats.TotalCheckins != 1 {
		t.Fatalf("check-in result = %+v", res)
	}

	var summary trail.Summary
	expectSuccess(t, "GET progress", s.do(t, "GET", "/trails/t1/progress", "", &summary))
	if summary != (trail.Summary{Total: 3, Visited: 1, Percentage: 33}) {
		t.Errorf("t1 progress = %+v", summary)
	}

	if code := s.do(t, "POST", "/checkins", `{"shop_id":"1","rating":9}`, nil); code != http.StatusUnprocessableEntity && code != http.StatusBadRequest {
		t.Errorf("rating 9 = %d, want a validation error", code)
	}
	if code := s.do(t, "POST", "/checkins", `{"shop_id":"nope"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown shop = %d, want 404", code)
	}
	if code := s.do(t, "POST", "/trails/t1/visits", `{"shop_id":"2"}`, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("visit outside trail = %d, want 422", code)
	}
	if code := s.do(t, "GET", "/trails/nope/progress", "", nil); code != http.StatusNotFound {
		t.Errorf("unknown trail = %d, want 404", code)
	}

	for _, shopID := range []string{"3", "4"} {
		expectSuccess(t, "POST visit", s.do(t, "POST", "/trails/t1/visits", `{"shop_id":"`+shopID+`"}`, &res))
	}
	var completed struct {
		TrailIDs []string `json:"trail_ids"`
	}
	expectSuccess(t, "GET completed", s.do(t, "GET", "/me/trails/completed", "", &completed))
	if len(completed.TrailIDs) != 1 || completed.TrailIDs[0] != "t1" {
		t.Errorf("completed trails = %v", completed.TrailIDs)
	}

	var posts []models.Post
	expectSuccess(t, "GET /feed", s.do(t, "GET", "/feed", "", &posts, anonymous))
	types := map[domain.PostType]int{}
	for _, p := range posts {
		types[p.Type]++
	}
	if len(posts) != 2 || types[domain.PostReview] != 1 || types[domain.PostTrailComplete] != 1 {
		t.Errorf("feed = %+v", posts)
	}
}

func TestRewardRevealFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if code := s.do(t, "POST", "/rewards/r4/reveal", "", nil); code != http.StatusConflict {
		t.Errorf("reveal locked = %d, want 409", code)
	}
	if code := s.do(t, "POST", "/rewards/nope/reveal", "", nil); code != http.StatusNotFound {
		t.Errorf("reveal unknown = %d, want 404", code)
	}
	if code := s.do(t, "POST", "/rewards/r4/confirm", "", nil); code != http.StatusConflict {
		t.Errorf("confirm without reveal = %d, want 409", code)
	}

	if _, err := s.rewards.UnlockRewards(ctx, s.user.ID, []string{"r4"}); err != nil {
		t.Fatalf("UnlockRewards returned error: %v", err)
	}

	var revealed reward.Revealed
	expectSuccess(t, "reveal", s.do(t, "POST", "/rewards/r4/reveal", "", &revealed))
	if revealed.Code != "SUMPFREE" || revealed.RemainingSeconds != 120 {
		t.Errorf("revealed = %+v", revealed)
	}

	var c reward.Countdown
	expectSuccess(t, "countdown", s.do(t, "GET", "/rewards/r4/countdown", "", &c))
	if c.Status != domain.StatusRevealStarted || c.RemainingSeconds <= 0 || c.RemainingSeconds > 120 {
		t.Errorf("countdown = %+v", c)
	}
	if code := s.do(t, "POST", "/rewards/r4/abandon", "", nil); code != http.StatusConflict {
		t.Errorf("abandon during reveal = %d, want 409", code)
	}

	var views []reward.View
	expectSuccess(t, "list", s.do(t, "GET", "/rewards", "", &views))
	for _, v := range views {
		if v.ID == "r4" && v.Status != domain.StatusRevealStarted {
			t.Errorf("r4 listed as %s", v.Status)
		}
	}

	var ur models.UserReward
	expectSuccess(t, "confirm", s.do(t, "POST", "/rewards/r4/confirm", "", &ur))
	if ur.Status != domain.StatusRedeemed {
		t.Errorf("confirm status = %s", ur.Status)
	}
	if code := s.do(t, "POST", "/rewards/r4/reveal", "", nil); code != http.StatusConflict {
		t.Errorf("reveal after redemption = %d, want 409", code)
	}
}

func TestPOSTransactionRequiresIntegrationKey(t *testing.T) {
	s := newTestServer(t)
	raw, _, err := auth.CreateIntegrationKey(context.Background(), s.db, "3", "square", nil)
	if err != nil {
		t.Fatalf("CreateIntegrationKey returned error: %v", err)
	}
	body := fmt.Sprintf(`{"user_id":%d,"amount":"4.50","provider":"square"}`, s.user.ID)

	if code := s.do(t, "POST", "/pos/transactions", body, nil, anonymous); code != http.StatusUnauthorized {
		t.Errorf("without key = %d, want 401", code)
	}
	withKey := func(req *http.Request) { req.Header.Set("X-API-KEY", raw) }

	var res pass.Result
	expectSuccess(t, "POST /pos/transactions", s.do(t, "POST", "/pos/transactions", body, &res, anonymous, withKey))
	if res.Transaction == nil || res.Transaction.ShopID != "3" || !res.Transaction.Amount.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("transaction = %+v", res.Transaction)
	}
	if code := s.do(t, "POST", "/pos/transactions", fmt.Sprintf(`{"user_id":%d,"amount":"lots"}`, s.user.ID), nil, anonymous, withKey); code != http.StatusBadRequest {
		t.Errorf("bad amount = %d, want 400", code)
	}
}

func TestFeedLikesAndComments(t *testing.T) {
	s := newTestServer(t)
	var res pass.Result
	expectSuccess(t, "POST /checkins", s.do(t, "POST", "/checkins", `{"shop_id":"2"}`, &res))
	postID := res.Post.ID

	var p models.Post
	for i := 0; i < 2; i++ {
		expectSuccess(t, "like", s.do(t, "POST", "/feed/"+postID+"/like", "", &p))
	}
	if p.LikesCount != 1 {
		t.Errorf("likes = %d, want 1", p.LikesCount)
	}
	expectSuccess(t, "unlike", s.do(t, "DELETE", "/feed/"+postID+"/like", "", &p))
	if p.LikesCount != 0 {
		t.Errorf("likes after unlike = %d, want 0", p.LikesCount)
	}

	var c models.PostComment
	expectSuccess(t, "comment", s.do(t, "POST", "/feed/"+postID+"/comments", `{"content":"Nice!"}`, &c))
	if c.Content != "Nice!" {
		t.Errorf("comment = %+v", c)
	}
	if code := s.do(t, "POST", "/feed/missing/like", "", nil); code != http.StatusNotFound {
		t.Errorf("like missing post = %d, want 404", code)
	}
}

func TestFavoritesAndAchievements(t *testing.T) {
	s := newTestServer(t)

	var favs struct {
		FavoriteShops []string `json:"favorite_shops"`
	}
	expectSuccess(t, "PUT favorite", s.do(t, "PUT", "/me/favorites/3", "", &favs))
	expectSuccess(t, "PUT favorite", s.do(t, "PUT", "/me/favorites/3", "", &favs))
	if len(favs.FavoriteShops) != 1 || favs.FavoriteShops[0] != "3" {
		t.Errorf("favorites = %v", favs.FavoriteShops)
	}
	expectSuccess(t, "DELETE favorite", s.do(t, "DELETE", "/me/favorites/3", "", &favs))
	if len(favs.FavoriteShops) != 0 {
		t.Errorf("favorites after delete = %v", favs.FavoriteShops)
	}

	expectSuccess(t, "POST /checkins", s.do(t, "POST", "/checkins", `{"shop_id":"5"}`, nil))
	var achievements []AchievementView
	expectSuccess(t, "GET /achievements", s.do(t, "GET", "/achievements", "", &achievements))
	earned := 0
	for _, a := range achievements {
		if a.Earned {
			earned++
			if a.ID != "first-checkin" || a.Percentage != 100 {
				t.Errorf("unexpected earned achievement %+v", a)
			}
		}
	}
	if earned != 1 {
		t.Errorf("earned %d achievements, want 1", earned)
	}
}

func TestCountdownWebsocket(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.rewards.UnlockRewards(context.Background(), s.user.ID, []string{"r4"}); err != nil {
		t.Fatalf("UnlockRewards returned error: %v", err)
	}
	expectSuccess(t, "reveal", s.do(t, "POST", "/rewards/r4/reveal", "", nil))

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: auth.CookieName, Value: s.token}).String())
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/rewards/r4/countdown/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial countdown: %v", err)
	}
	defer conn.Close()

	var c reward.Countdown
	if err := conn.ReadJSON(&c); err != nil {
		t.Fatalf("read first tick: %v", err)
	}
	if c.Status != domain.StatusRevealStarted || c.RemainingSeconds <= 0 {
		t.Fatalf("first tick = %+v", c)
	}

	expectSuccess(t, "confirm", s.do(t, "POST", "/rewards/r4/confirm", "", nil))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for c.Status == domain.StatusRevealStarted {
		if err := conn.ReadJSON(&c); err != nil {
			t.Fatalf("read tick: %v", err)
		}
	}
	if c.Status != domain.StatusRedeemed || c.RemainingSeconds != 0 {
		t.Errorf("final tick = %+v", c)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}

	header.Del("Cookie")
	if _, resp, err := websocket.DefaultDialer.Dial(url, header); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial without session should be rejected with 401")
	}
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("shop %q: %w", "x", domain.ErrUnknownEntity), http.StatusNotFound},
		{domain.ErrInvalidShopForTrail, http.StatusUnprocessableEntity},
		{domain.ErrInvalidStateTransition, http.StatusConflict},
		{domain.ErrNoActiveRedemption, http.StatusConflict},
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{huma.Error401Unauthorized("nope"), http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var statusErr huma.StatusError
		if !errors.As(toHTTPError(tt.err), &statusErr) {
			t.Fatalf("toHTTPError(%v) is not a status error", tt.err)
		}
		if statusErr.GetStatus() != tt.want {
			t.Errorf("toHTTPError(%v) = %d, want %d", tt.err, statusErr.GetStatus(), tt.want)
		}
	}
}
