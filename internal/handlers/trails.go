package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/trail"
)

type TrailHandler struct {
	trails *trail.Engine
	pass   *pass.Service
}

func NewTrailHandler(trails *trail.Engine, p *pass.Service) *TrailHandler {
	return &TrailHandler{trails: trails, pass: p}
}

type TrailView struct {
	models.Trail
	Progress  trail.Summary `json:"progress"`
	Completed bool          `json:"completed"`
}

type ListTrailsOutput struct {
	Body []TrailView
}

func (h *TrailHandler) HandleList(ctx context.Context, _ *struct{}) (*ListTrailsOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	trails, err := h.trails.Trails(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}
	views := make([]TrailView, 0, len(trails))
	for _, t := range trails {
		p, err := h.trails.Progress(ctx, t.ID, userID)
		if err != nil {
			return nil, toHTTPError(err)
		}
		views = append(views, TrailView{
			Trail:     t,
			Progress:  trail.Summarize(t, p),
			Completed: p != nil && p.IsCompleted,
		})
	}
	return &ListTrailsOutput{Body: views}, nil
}

type TrailPathInput struct {
	TrailID string `path:"id"`
}

type TrailProgressOutput struct {
	Body *models.TrailProgress
}

func (h *TrailHandler) HandleStart(ctx context.Context, input *TrailPathInput) (*TrailProgressOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.pass.StartTrail(ctx, userID, input.TrailID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &TrailProgressOutput{Body: p}, nil
}

type VisitRequest struct {
	TrailID string `path:"id"`
	Body    struct {
		ShopID string `json:"shop_id" required:"true"`
	}
}

func (h *TrailHandler) HandleVisit(ctx context.Context, input *VisitRequest) (*PassResultOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.pass.Handle(ctx, pass.Command{
		Type:    pass.TrailVisit,
		UserID:  userID,
		TrailID: input.TrailID,
		ShopID:  input.Body.ShopID,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &PassResultOutput{Body: res}, nil
}

type TrailSummaryOutput struct {
	Body trail.Summary
}

func (h *TrailHandler) HandleProgress(ctx context.Context, input *TrailPathInput) (*TrailSummaryOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	s, err := h.trails.ProgressFor(ctx, input.TrailID, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &TrailSummaryOutput{Body: s}, nil
}

type CompletedTrailsOutput struct {
	Body struct {
		TrailIDs []string `json:"trail_ids"`
	}
}

func (h *TrailHandler) HandleCompleted(ctx context.Context, _ *struct{}) (*CompletedTrailsOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := h.trails.CompletedTrails(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	out := &CompletedTrailsOutput{}
	out.Body.TrailIDs = append([]string{}, ids...)
	return out, nil
}
