package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/benjaminBrynildsen/Coffee-Pass/internal/auth"
	"github.com/benjaminBrynildsen/Coffee-Pass/internal/domain"
	"github.com/danielgtaylor/huma/v2"
)

// toHTTPError maps domain errors onto API errors. Anything unrecognized is logged and
// reported as a 500 without details.
func toHTTPError(err error) error {
	var statusErr huma.StatusError
	switch {
	case errors.As(err, &statusErr):
		return err
	case errors.Is(err, domain.ErrUnknownEntity):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrInvalidShopForTrail):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrNoActiveRedemption):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		return huma.Error400BadRequest(err.Error())
	}
	log.Printf("handlers: %v", err)
	return huma.Error500InternalServerError("Internal server error")
}

func currentUser(ctx context.Context) (uint, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized("Unauthorized")
	}
	return userID, nil
}

type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(text string) *MessageOutput {
	out := &MessageOutput{}
	out.Body.Message = text
	return out
}
