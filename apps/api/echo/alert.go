package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
)

// AuditHistory exposes the alert history; satisfied by the alert repository.
type AuditHistory interface {
	QueryAudit(ctx context.Context) ([]alert.Audit, error)
}

type alertApi struct {
	dispatcher alert.Dispatcher
	recorder   alert.Recorder
	audit      AuditHistory
}

func registerAlertAPI(g *echo.Group, jwt echo.MiddlewareFunc, dispatcher alert.Dispatcher, recorder alert.Recorder, audit AuditHistory) {
	api := alertApi{
		dispatcher: dispatcher,
		recorder:   recorder,
		audit:      audit,
	}

	ag := g.Group("/alerts")

	// the response link lands here from email/SMS; public but throttled
	limiter := newIPRateLimiter(core.Conf.ResponseRateLimit, core.Conf.ResponseRateLimitBurst)
	ag.GET("/respond", api.respond, limiter.middleware())

	// authed endpoints
	jg := ag.Group("", jwt)
	jg.POST("", api.trigger)
	jg.GET("", api.history, adminMiddleware())
}

// Handlers

func (api *alertApi) trigger(ctx echo.Context) error {
	var c alert.Criteria
	if err := ctx.Bind(&c); err != nil {
		return errors.Wrap(err, "binding to Criteria")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	c.TriggeredBy = claims.Subject

	res, err := api.dispatcher.Dispatch(ctx.Request().Context(), c)
	if err != nil {
		if errors.Cause(err) == alert.ErrNoRecipients {
			return echo.NewHTTPError(http.StatusNotFound, "no donors registered")
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// respond registers a donor's acknowledgement from the public alert link.
// Known and unknown emails get the same neutral 202 so the endpoint cannot
// be used to probe which emails are registered.
func (api *alertApi) respond(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	bloodType := ctx.QueryParam("blood_type")

	err := api.recorder.Record(ctx.Request().Context(), email, bloodType)
	switch errors.Cause(err) {
	case nil, alert.ErrUnknownDonor:
		return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "Thank you for responding."})
	case alert.ErrInvalidLink:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid response link")
	}
	return errors.Wrap(err, "recording donor response")
}

func (api *alertApi) history(ctx echo.Context) error {
	audits, err := api.audit.QueryAudit(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying alert history")
	}
	if audits == nil {
		audits = []alert.Audit{}
	}
	return ctx.JSON(http.StatusOK, audits)
}
