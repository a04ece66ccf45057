package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/report"
	"github.com/edvantage/academy/core/user"
)

func TestReportApi_outstandingDues(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t)
	e.enrollStudent(t, b.ID, "asha@test.cd", 10000)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)
	teacher := e.createUser(t, "teach", "S3cret-pass!", user.TeacherRoles)

	t.Run("teacher denied", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/outstanding-dues", getToken(t, teacher))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("accountant reads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/outstanding-dues", getToken(t, accountant))
		e.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var rep report.DuesReport
		if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
			t.Fatalf("unmarshalling DuesReport: %v", err)
		}
		if len(rep.Batches) != 1 {
			t.Fatalf("got %d batch groups, want 1", len(rep.Batches))
		}
		if rep.GrandTotal.IsZero() {
			t.Error("GrandTotal = 0, want the enrolled student's dues")
		}
	})
}

func TestReportApi_monthlyTrend(t *testing.T) {
	e := setup(t)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)
	token := getToken(t, accountant)

	br, err := e.branchSvc.Create(context.Background(), branch.NewBranch{Name: "Main Campus", Code: "KIN01"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet,
		"/v1/reports/monthly-trend?branch_id="+strconv.Itoa(br.ID)+"&start=2026-05-01&end=2026-07-31", token)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var entries []report.MonthlyEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshalling entries: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d months, want 3", len(entries))
	}

	// a missing or malformed branch_id is a request defect, not a missing resource
	for _, path := range []string{"/v1/reports/monthly-trend", "/v1/reports/monthly-trend?branch_id=abc"} {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"branch_id": "a valid branch_id is required"}),
		}
		req, rec = newAuthRequest(http.MethodGet, path, token)
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}
}
