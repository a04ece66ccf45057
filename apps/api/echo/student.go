package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
)

type studentApi struct {
	svc        *student.Service
	paymentSvc *payment.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service, pmtSvc *payment.Service) {
	api := studentApi{svc: svc, paymentSvc: pmtSvc}

	sg := g.Group("/students", jwt)
	sg.POST("", api.enroll, requirePermission(access.ResourceStudents, access.ActionWrite))
	sg.GET("", api.query, requirePermission(access.ResourceStudents, access.ActionRead))
	sg.GET("/:id", api.retrieve, requirePermission(access.ResourceStudents, access.ActionRead))
	sg.DELETE("/:id", api.deactivate, requirePermission(access.ResourceStudents, access.ActionWrite))
	sg.GET("/:id/payments", api.payments, requirePermission(access.ResourcePayments, access.ActionRead))
}

func (api *studentApi) enroll(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	std, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

type studentFilterRequest struct {
	BranchID      int    `query:"branch_id"`
	BatchID       int    `query:"batch_id"`
	CourseID      int    `query:"course_id"`
	PaymentStatus string `query:"payment_status"`
	IsActive      *bool  `query:"is_active"`
	WithDues      bool   `query:"with_dues"`
	Search        string `query:"search"`
}

func (api *studentApi) query(ctx echo.Context) error {
	var req studentFilterRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding filter")
	}

	students, err := api.svc.Filter(ctx.Request().Context(), student.QueryFilter{
		BranchID:      req.BranchID,
		BatchID:       req.BatchID,
		CourseID:      req.CourseID,
		PaymentStatus: student.PaymentStatus(req.PaymentStatus),
		IsActive:      req.IsActive,
		WithDues:      req.WithDues,
		Search:        req.Search,
	})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	std, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) deactivate(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	std, err := api.svc.Deactivate(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deactivating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) payments(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding student by ID")
	}

	payments, err := api.paymentSvc.Filter(ctx.Request().Context(), payment.QueryFilter{StudentID: id})
	if err != nil {
		return errors.Wrap(err, "querying student payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}
