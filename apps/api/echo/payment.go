package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edvantage/academy/core/access"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *payment.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments", jwt)
	pg.POST("", api.collect, requirePermission(access.ResourcePayments, access.ActionWrite))
	pg.POST("/adjustments", api.adjust, requirePermission(access.ResourcePayments, access.ActionWrite))
	pg.GET("", api.query, requirePermission(access.ResourcePayments, access.ActionRead))
	pg.GET("/:id", api.retrieve, requirePermission(access.ResourcePayments, access.ActionRead))
}

// CollectionResponse returns the payment event along with the updated student
// ledger so clients never recompute dues themselves.
type CollectionResponse struct {
	Payment payment.Payment `json:"payment"`
	Student student.Student `json:"student"`
}

func (api *paymentApi) collect(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if claims, err := getContextClaims(ctx); err == nil {
		data.CollectedBy = null.StringFrom(claims.Subject)
	}

	pmt, std, err := api.svc.Collect(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "collecting payment")
	}
	return ctx.JSON(http.StatusCreated, CollectionResponse{Payment: pmt, Student: std})
}

func (api *paymentApi) adjust(ctx echo.Context) error {
	var data payment.NewAdjustment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdjustment")
	}
	if claims, err := getContextClaims(ctx); err == nil {
		data.CollectedBy = null.StringFrom(claims.Subject)
	}

	pmt, std, err := api.svc.Adjust(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adjusting ledger")
	}
	return ctx.JSON(http.StatusCreated, CollectionResponse{Payment: pmt, Student: std})
}

type paymentFilterRequest struct {
	StudentID int    `query:"student_id"`
	BranchID  int    `query:"branch_id"`
	Method    string `query:"payment_method"`
	Kind      string `query:"payment_type"`
}

func (api *paymentApi) query(ctx echo.Context) error {
	var req paymentFilterRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding filter")
	}
	from, err := bindDate(ctx, "from", time.Time{})
	if err != nil {
		return err
	}
	to, err := bindDate(ctx, "to", time.Time{})
	if err != nil {
		return err
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1) // inclusive end date
	}

	payments, err := api.svc.Filter(ctx.Request().Context(), payment.QueryFilter{
		StudentID: req.StudentID,
		BranchID:  req.BranchID,
		Method:    payment.Method(req.Method),
		Kind:      payment.Kind(req.Kind),
		From:      from,
		To:        to,
	})
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding payment by ID")
	}
	return ctx.JSON(http.StatusOK, pmt)
}
