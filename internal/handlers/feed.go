package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/feed"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/models"
)

type FeedHandler struct {
	feed *feed.Service
}

func NewFeedHandler(f *feed.Service) *FeedHandler {
	return &FeedHandler{feed: f}
}

type ListFeedInput struct {
	UserID uint   `query:"user_id"`
	ShopID string `query:"shop_id"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100"`
}

type ListFeedOutput struct {
	Body []models.Post
}

func (h *FeedHandler) HandleList(ctx context.Context, input *ListFeedInput) (*ListFeedOutput, error) {
	posts, err := h.feed.List(ctx, feed.Filter{UserID: input.UserID, ShopID: input.ShopID, Limit: input.Limit})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &ListFeedOutput{Body: posts}, nil
}

type PostPathInput struct {
	PostID string `path:"id"`
}

type PostOutput struct {
	Body *models.Post
}

func (h *FeedHandler) HandleLike(ctx context.Context, input *PostPathInput) (*PostOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.feed.Like(ctx, input.PostID, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &PostOutput{Body: p}, nil
}

func (h *FeedHandler) HandleUnlike(ctx context.Context, input *PostPathInput) (*PostOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.feed.Unlike(ctx, input.PostID, userID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &PostOutput{Body: p}, nil
}

type CommentRequest struct {
	PostID string `path:"id"`
	Body   struct {
		Content string `json:"content" required:"true" minLength:"1" maxLength:"500"`
	}
}

type CommentOutput struct {
	Body *models.PostComment
}

func (h *FeedHandler) HandleComment(ctx context.Context, input *CommentRequest) (*CommentOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := h.feed.Comment(ctx, input.PostID, userID, input.Body.Content)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &CommentOutput{Body: c}, nil
}
