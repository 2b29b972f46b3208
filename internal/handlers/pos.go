package handlers

import (
	"context"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/pass"
	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"
)

// POSHandler receives purchases pushed by a shop's point-of-sale integration.
type POSHandler struct {
	pass *pass.Service
}

func NewPOSHandler(p *pass.Service) *POSHandler {
	return &POSHandler{pass: p}
}

type POSTransactionRequest struct {
	Body struct {
		UserID   uint   `json:"user_id" required:"true" minimum:"1"`
		Amount   string `json:"amount" required:"true" doc:"Decimal amount, e.g. 4.50"`
		Provider string `json:"provider,omitempty"`
	}
}

func (h *POSHandler) HandleTransaction(ctx context.Context, input *POSTransactionRequest) (*PassResultOutput, error) {
	shopID, ok := auth.ShopIDFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized: API Key required")
	}
	amount, err := decimal.NewFromString(input.Body.Amount)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid amount: " + input.Body.Amount)
	}
	res, err := h.pass.Handle(ctx, pass.Command{
		Type:     pass.POSTransaction,
		UserID:   input.Body.UserID,
		ShopID:   shopID,
		Amount:   amount,
		Provider: input.Body.Provider,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &PassResultOutput{Body: res}, nil
}
