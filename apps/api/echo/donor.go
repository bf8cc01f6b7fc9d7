package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/user"
)

type donorApi struct {
	svc     donor.Service
	userSvc user.Service
}

func registerDonorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc donor.Service, userSvc user.Service) {
	api := donorApi{svc: svc, userSvc: userSvc}

	dg := g.Group("/donors")

	// un-authed endpoints
	dg.GET("/leaderboard", api.leaderboard)

	// authed endpoints
	ag := dg.Group("", jwt)
	ag.GET("", api.search)
	ag.POST("", api.createProfile)
	ag.GET("/me", api.retrieveOwn)
	ag.PUT("/me", api.updateOwn)
	ag.GET("/:id", api.retrieve)
}

// Handlers

func (api *donorApi) createProfile(ctx echo.Context) error {
	var data donor.NewDonor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDonor")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.UserID = ctxUsr.ID

	if err := data.Validate(); err != nil {
		return err
	}

	d, err := api.svc.CreateProfile(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == donor.ErrProfileExists {
			return echo.NewHTTPError(http.StatusConflict, "donor profile already exists")
		}
		return errors.Wrap(err, "creating donor profile")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *donorApi) retrieveOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	d, err := api.svc.GetByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == donor.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding donor by user ID")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *donorApi) updateOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data donor.UpdateDonor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDonor")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	d, err := api.svc.UpdateProfile(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == donor.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating donor profile")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *donorApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == donor.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding donor by ID")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *donorApi) search(ctx echo.Context) error {
	filter := new(donor.SearchFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []donor.Donor{})
	}
	filter.Clean()

	donors, err := api.svc.Search(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "searching donors")
	}
	if donors == nil {
		donors = []donor.Donor{}
	}
	return ctx.JSON(http.StatusOK, donors)
}

func (api *donorApi) leaderboard(ctx echo.Context) error {
	entries, err := api.svc.Leaderboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying leaderboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}
