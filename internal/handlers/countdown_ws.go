package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const countdownWriteWait = 10 * time.Second

var countdownUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleCountdownWS pushes the reveal countdown once per tick until the reward is no longer
// in REVEAL_STARTED, then closes the socket.
func (h *RewardHandler) HandleCountdownWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	rewardID := chi.URLParam(r, "id")
	if _, err := h.rewards.Countdown(r.Context(), userID, rewardID); err != nil {
		if errors.Is(err, domain.ErrUnknownEntity) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := countdownUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.rewards.Tick())
	defer ticker.Stop()
	for {
		c, err := h.rewards.Countdown(r.Context(), userID, rewardID)
		if err != nil {
			log.Printf("handlers: countdown for user %d reward %s: %v", userID, rewardID, err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(countdownWriteWait))
		if err := conn.WriteJSON(c); err != nil {
			return
		}
		if c.Status != domain.StatusRevealStarted {
			conn.SetWriteDeadline(time.Now().Add(countdownWriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(c.Status)))
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
