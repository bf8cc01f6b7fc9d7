package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/messaging"
)

type messagingApi struct {
	svc messaging.Service
}

func registerMessagingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc messaging.Service) {
	api := messagingApi{svc: svc}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.inbox)
	mg.POST("", api.send)
	mg.GET("/:peer", api.thread)
}

// Handlers

func (api *messagingApi) send(ctx echo.Context) error {
	var data SendMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msg, err := api.svc.Send(ctx.Request().Context(), claims.Subject, data.RecipientID, data.Body)
	if err != nil {
		switch errors.Cause(err) {
		case messaging.ErrEmptyBody, messaging.ErrSelfMessage:
			return core.NewValidationError(err)
		case messaging.ErrUnknownPeer:
			return core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: err.Error()})
		}
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) inbox(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	summaries, err := api.svc.Inbox(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	if summaries == nil {
		summaries = []messaging.ConversationSummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *messagingApi) thread(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msgs, err := api.svc.Thread(ctx.Request().Context(), claims.Subject, ctx.Param("peer"))
	if err != nil {
		return errors.Wrap(err, "querying thread")
	}
	if msgs == nil {
		msgs = []messaging.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

func (sr *SendMessageRequest) Validate() error {
	sr.Body = core.CleanString(sr.Body)
	return core.Validate.Struct(sr)
}
