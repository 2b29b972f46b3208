package reward

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

type countdown struct {
	stop chan struct{}
	once sync.Once
}

func (c *countdown) cancel() {
	c.once.Do(func() { close(c.stop) })
}

// sessions tracks the running countdowns, keyed by UserReward id.
type sessions struct {
	mu     sync.Mutex
	active map[uint]*countdown
	closed bool
	wg     sync.WaitGroup
}

func newSessions() *sessions {
	return &sessions{active: make(map[uint]*countdown)}
}

func (s *sessions) cancel(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.active[id]; ok {
		delete(s.active, id)
		c.cancel()
	}
}

func (s *sessions) remove(id uint, c *countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] == c {
		delete(s.active, id)
	}
}

// Active reports how many countdowns are running.
func (e *Engine) Active() int {
	e.sessions.mu.Lock()
	defer e.sessions.mu.Unlock()
	return len(e.sessions.active)
}

// schedule starts the countdown for a REVEAL_STARTED record unless one is already running.
func (e *Engine) schedule(ur models.UserReward) {
	s := e.sessions
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.active[ur.ID]; ok {
		return
	}
	c := &countdown{stop: make(chan struct{})}
	s.active[ur.ID] = c
	s.wg.Add(1)

	base := e.WithTx(e.root)
	go base.run(ur, c)
}

func (e *Engine) run(ur models.UserReward, c *countdown) {
	defer e.sessions.wg.Done()
	defer e.sessions.remove(ur.ID, c)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if Remaining(ur, e.clock.Now(), e.window) > 0 {
				continue
			}
			done, err := e.expire(context.Background(), ur)
			if err != nil {
				log.Printf("reward: expire reveal %d for user %d: %v", ur.ID, ur.UserID, err)
				continue
			}
			if done {
				return
			}
		}
	}
}

// Close stops every countdown and waits for them to exit. Stored reveal state is left as is;
// Resume picks it up on the next start.
func (e *Engine) Close() {
	s := e.sessions
	s.mu.Lock()
	s.closed = true
	for id, c := range s.active {
		delete(s.active, id)
		c.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
