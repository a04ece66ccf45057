package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/batch"
)

type batchApi struct {
	svc *batch.Service
}

func registerBatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *batch.Service) {
	api := batchApi{svc: svc}

	bg := g.Group("/batches", jwt)
	bg.POST("", api.create, requirePermission(access.ResourceBatches, access.ActionWrite))
	bg.GET("", api.query, requirePermission(access.ResourceBatches, access.ActionRead))
	bg.GET("/:id", api.retrieve, requirePermission(access.ResourceBatches, access.ActionRead))
	bg.GET("/:id/stats", api.stats, requirePermission(access.ResourceBatches, access.ActionRead))
	bg.POST("/:id/attendance", api.markAttendance, requirePermission(access.ResourceAttendance, access.ActionWrite))
	bg.GET("/:id/attendance", api.listAttendance, requirePermission(access.ResourceAttendance, access.ActionRead))
}

func (api *batchApi) create(ctx echo.Context) error {
	var data batch.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}

	b, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

type batchFilterRequest struct {
	BranchID int    `query:"branch_id"`
	CourseID int    `query:"course_id"`
	IsActive *bool  `query:"is_active"`
	Search   string `query:"search"`
}

func (api *batchApi) query(ctx echo.Context) error {
	var req batchFilterRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding filter")
	}

	batches, err := api.svc.Filter(ctx.Request().Context(), batch.QueryFilter{
		BranchID: req.BranchID,
		CourseID: req.CourseID,
		IsActive: req.IsActive,
		Search:   req.Search,
	})
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	b, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding batch by ID")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) stats(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	date, err := bindDate(ctx, "date", time.Now().UTC())
	if err != nil {
		return err
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), id, date)
	if err != nil {
		return errors.Wrap(err, "computing batch stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *batchApi) markAttendance(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data batch.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if claims, err := getContextClaims(ctx); err == nil {
		data.MarkedBy = null.StringFrom(claims.Subject)
	}

	att, err := api.svc.Mark(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *batchApi) listAttendance(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	date, err := bindDate(ctx, "date", time.Now().UTC())
	if err != nil {
		return err
	}

	records, err := api.svc.Attendance(ctx.Request().Context(), id, date)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}
