package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/reward"
)

type RewardHandler struct {
	rewards *reward.Engine
	pass    *pass.Service
}

func NewRewardHandler(rewards *reward.Engine, p *pass.Service) *RewardHandler {
	return &RewardHandler{rewards: rewards, pass: p}
}

type ListRewardsOutput struct {
	Body []reward.View
}

func (h *RewardHandler) HandleList(ctx context.Context, _ *struct{}) (*ListRewardsOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	views, err := h.rewards.List(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &ListRewardsOutput{Body: views}, nil
}

type RewardPathInput struct {
	RewardID string `path:"id"`
}

type RevealOutput struct {
	Body *reward.Revealed
}

func (h *RewardHandler) HandleReveal(ctx context.Context, input *RewardPathInput) (*RevealOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.pass.Handle(ctx, pass.Command{Type: pass.RevealRequest, UserID: userID, RewardID: input.RewardID})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &RevealOutput{Body: res.Revealed}, nil
}

type RedemptionOutput struct {
	Body *models.UserReward
}

func (h *RewardHandler) HandleConfirm(ctx context.Context, input *RewardPathInput) (*RedemptionOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.pass.Handle(ctx, pass.Command{Type: pass.RedemptionConfirm, UserID: userID, RewardID: input.RewardID})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &RedemptionOutput{Body: res.Redemption}, nil
}

func (h *RewardHandler) HandleAbandon(ctx context.Context, input *RewardPathInput) (*MessageOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.pass.Abandon(ctx, userID, input.RewardID); err != nil {
		return nil, toHTTPError(err)
	}
	return message("Nothing to abandon"), nil
}

type CountdownOutput struct {
	Body *reward.Countdown
}

func (h *RewardHandler) HandleCountdown(ctx context.Context, input *RewardPathInput) (*CountdownOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := h.rewards.Countdown(ctx, userID, input.RewardID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &CountdownOutput{Body: c}, nil
}
