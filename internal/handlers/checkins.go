package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/stats"
)

type CheckinHandler struct {
	pass *pass.Service
}

func NewCheckinHandler(p *pass.Service) *CheckinHandler {
	return &CheckinHandler{pass: p}
}

type CheckinRequest struct {
	Body struct {
		ShopID    string   `json:"shop_id" required:"true" doc:"Shop being visited"`
		Rating    *int     `json:"rating,omitempty" minimum:"1" maximum:"5"`
		Note      string   `json:"note,omitempty" maxLength:"500"`
		PhotoURL  string   `json:"photo_url,omitempty"`
		Latitude  *float64 `json:"latitude,omitempty"`
		Longitude *float64 `json:"longitude,omitempty"`
	}
}

type PassResultOutput struct {
	Body *pass.Result
}

func (h *CheckinHandler) HandleCheckin(ctx context.Context, input *CheckinRequest) (*PassResultOutput, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.pass.Handle(ctx, pass.Command{
		Type:   pass.CheckIn,
		UserID: userID,
		CheckIn: stats.CheckInInput{
			ShopID:    input.Body.ShopID,
			Rating:    input.Body.Rating,
			Note:      input.Body.Note,
			PhotoURL:  input.Body.PhotoURL,
			Latitude:  input.Body.Latitude,
			Longitude: input.Body.Longitude,
		},
	})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &PassResultOutput{Body: res}, nil
}
