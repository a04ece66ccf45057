package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/report"
)

var (
	errBranchIDRequired = "a valid branch_id is required"
	errExpectedInteger  = "expected an integer"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.GET("/monthly-trend", api.monthlyTrend, requirePermission(access.ResourceReports, access.ActionRead))
	rg.GET("/consolidated", api.consolidated, requirePermission(access.ResourceReports, access.ActionRead))
	rg.GET("/outstanding-dues", api.outstandingDues, requirePermission(access.ResourceReports, access.ActionRead))
}

func (api *reportApi) monthlyTrend(ctx echo.Context) error {
	branchID, err := strconv.Atoi(ctx.QueryParam("branch_id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "branch_id", Error: errBranchIDRequired})
	}
	now := time.Now().UTC()
	start, err := bindDate(ctx, "start", now.AddDate(0, -11, 0))
	if err != nil {
		return err
	}
	end, err := bindDate(ctx, "end", now)
	if err != nil {
		return err
	}

	trend, err := api.svc.MonthlyTrend(ctx.Request().Context(), branchID, start, end)
	if err != nil {
		return errors.Wrap(err, "computing monthly trend")
	}
	return ctx.JSON(http.StatusOK, trend)
}

func (api *reportApi) consolidated(ctx echo.Context) error {
	now := time.Now().UTC()
	start, err := bindDate(ctx, "start", now.AddDate(0, -1, 0))
	if err != nil {
		return err
	}
	end, err := bindDate(ctx, "end", now)
	if err != nil {
		return err
	}

	rep, err := api.svc.Consolidated(ctx.Request().Context(), start, end)
	if err != nil {
		return errors.Wrap(err, "computing consolidated report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) outstandingDues(ctx echo.Context) error {
	var filter report.DuesFilter
	if v := ctx.QueryParam("branch_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "branch_id", Error: errExpectedInteger})
		}
		filter.BranchID = id
	}
	if v := ctx.QueryParam("batch_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errExpectedInteger})
		}
		filter.BatchID = id
	}

	rep, err := api.svc.OutstandingDues(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing outstanding dues report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
