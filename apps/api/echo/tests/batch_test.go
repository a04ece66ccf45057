package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/user"
)

func TestBatchApi_attendance(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t)
	std := e.enrollStudent(t, b.ID, "asha@test.cd", 10000)
	teacher := e.createUser(t, "teach", "S3cret-pass!", user.TeacherRoles)
	token := getToken(t, teacher)
	base := "/v1/batches/" + strconv.Itoa(b.ID)

	body := marshallObj(t, batch.MarkAttendance{
		StudentID: std.ID,
		Date:      time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		Status:    batch.AttendancePresent,
	})
	req, rec := newAuthRequest(http.MethodPost, base+"/attendance", token, body)
	e.server.ServeHTTP(rec, req)

	// re-marking is an upsert, so the handler replies 200 rather than 201
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var att batch.Attendance
	if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
		t.Fatalf("unmarshalling Attendance: %v", err)
	}
	if att.MarkedBy.String != teacher.ID {
		t.Errorf("MarkedBy = %q, want %q", att.MarkedBy.String, teacher.ID)
	}

	req, rec = newAuthRequest(http.MethodGet, base+"/attendance?date=2026-08-10", token)
	e.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var records []batch.Attendance
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("unmarshalling attendance records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}

	// teachers read batches but only admins create them
	req, rec = newAuthRequest(http.MethodPost, "/v1/batches", token, marshallObj(t, batch.NewBatch{
		Name:      "Evening",
		CourseID:  1,
		BranchID:  1,
		StartDate: time.Now().UTC(),
		EndDate:   time.Now().UTC().AddDate(0, 6, 0),
	}))
	e.server.ServeHTTP(rec, req)
	tt := httpTest{
		wantCode: http.StatusForbidden,
		wantData: marshallObj(t, httpErr{Error: "permission denied"}),
	}
	checkCodeAndData(t, tt, rec)
}

func TestBatchApi_stats(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t)
	e.enrollStudent(t, b.ID, "asha@test.cd", 10000)
	accountant := e.createUser(t, "counter", "S3cret-pass!", user.AccountantRoles)

	req, rec := newAuthRequest(http.MethodGet,
		"/v1/batches/"+strconv.Itoa(b.ID)+"/stats?date=2026-08-10", getToken(t, accountant))
	e.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var stats batch.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshalling Stats: %v", err)
	}
	if stats.TotalStudents != 1 {
		t.Errorf("TotalStudents = %d, want 1", stats.TotalStudents)
	}
	if stats.Date != "2026-08-10" {
		t.Errorf("Date = %s, want 2026-08-10", stats.Date)
	}
}
