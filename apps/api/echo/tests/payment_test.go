package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	. "github.com/edvantage/academy/apps/api/echo"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
	"github.com/edvantage/academy/core/user"
)

func TestPaymentApi_collect(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t)
	std := e.enrollStudent(t, b.ID, "asha@test.cd", 10000)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)
	teacher := e.createUser(t, "teach", "S3cret-pass!", user.TeacherRoles)

	body := marshallObj(t, payment.NewPayment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(4000),
		Method:    payment.MethodCash,
		Kind:      payment.KindInstallment,
	})

	t.Run("teacher denied", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments", getToken(t, teacher), body)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("accountant collects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments", getToken(t, accountant), body)
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp CollectionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling CollectionResponse: %v", err)
		}
		if resp.Payment.CollectedBy.String != accountant.ID {
			t.Errorf("CollectedBy = %q, want %q", resp.Payment.CollectedBy.String, accountant.ID)
		}
		if want := decimal.NewFromInt(4000); !resp.Student.PaidAmount.Equal(want) {
			t.Errorf("PaidAmount = %s, want %s", resp.Student.PaidAmount, want)
		}
		if want := decimal.NewFromInt(6000); !resp.Student.DueAmount.Equal(want) {
			t.Errorf("DueAmount = %s, want %s", resp.Student.DueAmount, want)
		}
		if resp.Student.PaymentStatus != student.StatusPartial {
			t.Errorf("PaymentStatus = %s, want %s", resp.Student.PaymentStatus, student.StatusPartial)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		bad := marshallObj(t, payment.NewPayment{
			StudentID: 999,
			Amount:    decimal.NewFromInt(4000),
			Method:    payment.MethodCash,
			Kind:      payment.KindInstallment,
		})
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "student not found"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments", getToken(t, accountant), bad)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func TestPaymentApi_query_badFilter(t *testing.T) {
	e := setup(t)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)
	token := getToken(t, accountant)

	// a malformed filter is a caller error, never an empty result
	paths := []string{
		"/v1/payments?student_id=abc",
		"/v1/payments?from=yesterday",
		"/v1/batches?course_id=abc",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path, token)
			e.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func TestPaymentApi_adjust(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t)
	std := e.enrollStudent(t, b.ID, "asha@test.cd", 10000)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)
	token := getToken(t, accountant)

	collect := marshallObj(t, payment.NewPayment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(5000),
		Method:    payment.MethodCash,
		Kind:      payment.KindInstallment,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/payments", token, collect)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	adjust := marshallObj(t, payment.NewAdjustment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(-2000),
		Reason:    "double entry",
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/adjustments", token, adjust)
	e.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp CollectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling CollectionResponse: %v", err)
	}
	if resp.Payment.Kind != payment.KindAdjustment {
		t.Errorf("Kind = %s, want %s", resp.Payment.Kind, payment.KindAdjustment)
	}
	if want := decimal.NewFromInt(3000); !resp.Student.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", resp.Student.PaidAmount, want)
	}

	// the student payment history lists both events
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+strconv.Itoa(std.ID)+"/payments", token)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var payments []payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &payments); err != nil {
		t.Fatalf("unmarshalling payments: %v", err)
	}
	if len(payments) != 2 {
		t.Errorf("got %d payments, want 2", len(payments))
	}
}
