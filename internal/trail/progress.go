// Package trail tracks which shops of a trail each user has visited and derives completion.
package trail

import (
	"fmt"
	"slices"
	"time"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

// Summary is the display form of a user's progress on a trail.
type Summary struct {
	Total      int `json:"total"`
	Visited    int `json:"visited"`
	Percentage int `json:"percentage"`
}

// Outcome describes what a visit did.
type Outcome struct {
	Created   bool // the progress record did not exist before
	Changed   bool // a new shop was recorded
	Completed bool // this visit completed the trail
}

// NewProgress is an empty, just-started record.
func NewProgress(trailID string, userID uint, now time.Time) models.TrailProgress {
	return models.TrailProgress{
		TrailID:        trailID,
		UserID:         userID,
		VisitedShopIDs: []string{},
		StartedAt:      now,
	}
}

// Visit returns the progress after visiting shopID. The input record is not modified.
// Repeat visits return the record unchanged; completion is set once and never reverts.
func Visit(t models.Trail, p models.TrailProgress, shopID string, now time.Time) (models.TrailProgress, Outcome, error) {
	if !t.HasShop(shopID) {
		return p, Outcome{}, fmt.Errorf("shop %q on trail %q: %w", shopID, t.ID, domain.ErrInvalidShopForTrail)
	}
	if p.Visited(shopID) {
		return p, Outcome{}, nil
	}

	next := p
	next.VisitedShopIDs = append(slices.Clone(p.VisitedShopIDs), shopID)
	out := Outcome{Changed: true}

	if !next.IsCompleted && len(next.VisitedShopIDs) == len(t.ShopIDs) {
		completedAt := now
		next.IsCompleted = true
		next.CompletedAt = &completedAt
		out.Completed = true
	}
	return next, out, nil
}

// Summarize computes visited/total counts. p may be nil for a trail not yet started.
func Summarize(t models.Trail, p *models.TrailProgress) Summary {
	s := Summary{Total: len(t.ShopIDs)}
	if p != nil {
		s.Visited = len(p.VisitedShopIDs)
	}
	s.Percentage = domain.Percentage(s.Visited, s.Total)
	return s
}
