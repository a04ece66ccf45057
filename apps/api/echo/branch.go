package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/branch"
)

type branchApi struct {
	svc *branch.Service
}

func registerBranchAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *branch.Service) {
	api := branchApi{svc: svc}

	bg := g.Group("/branches", jwt)
	bg.POST("", api.create, requirePermission(access.ResourceBranches, access.ActionWrite))
	bg.GET("", api.query, requirePermission(access.ResourceBranches, access.ActionRead))
	bg.GET("/:id", api.retrieve, requirePermission(access.ResourceBranches, access.ActionRead))
	bg.POST("/:id/income", api.recordIncome, requirePermission(access.ResourceBranches, access.ActionWrite))
	bg.POST("/:id/expenses", api.recordExpense, requirePermission(access.ResourceBranches, access.ActionWrite))
	bg.GET("/:id/financials", api.financials, requirePermission(access.ResourceBranches, access.ActionRead))
}

func (api *branchApi) create(ctx echo.Context) error {
	var data branch.NewBranch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBranch")
	}

	b, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating branch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *branchApi) query(ctx echo.Context) error {
	branches, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	return ctx.JSON(http.StatusOK, branches)
}

func (api *branchApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	b, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding branch by ID")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *branchApi) recordIncome(ctx echo.Context) error {
	return api.recordEntry(ctx, api.svc.RecordIncome, "recording income")
}

func (api *branchApi) recordExpense(ctx echo.Context) error {
	return api.recordEntry(ctx, api.svc.RecordExpense, "recording expense")
}

func (api *branchApi) recordEntry(
	ctx echo.Context,
	record func(context.Context, int, branch.NewEntry) (branch.Entry, error),
	msg string,
) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data branch.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if claims, err := getContextClaims(ctx); err == nil {
		data.RecordedBy = null.StringFrom(claims.Subject)
	}

	entry, err := record(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *branchApi) financials(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	now := time.Now().UTC()
	start, err := bindDate(ctx, "start", now.AddDate(0, -1, 0))
	if err != nil {
		return err
	}
	end, err := bindDate(ctx, "end", now)
	if err != nil {
		return err
	}

	fin, err := api.svc.Financials(ctx.Request().Context(), id, start, end)
	if err != nil {
		return errors.Wrap(err, "computing branch financials")
	}
	return ctx.JSON(http.StatusOK, fin)
}
