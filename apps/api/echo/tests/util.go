package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	. "github.com/edvantage/academy/apps/api/echo"
	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/report"
	"github.com/edvantage/academy/core/student"
	"github.com/edvantage/academy/core/user"
	emailsvc "github.com/edvantage/academy/services/email"
	logsvc "github.com/edvantage/academy/services/logger"
	inmemdb "github.com/edvantage/academy/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	server *Server

	usrRepo    user.Repository
	batchRepo  *inmemdb.BatchRepository
	studentSvc *student.Service
	paymentSvc *payment.Service
	branchSvc  *branch.Service
}

func setup(t *testing.T) *env {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	stdRepo := inmemdb.NewStudentRepository(db)
	pmtRepo := inmemdb.NewPaymentRepository(db)
	batchRepo := inmemdb.NewBatchRepository(db)
	branchRepo := inmemdb.NewBranchRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleService()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.Conf)
	logger.Enable(false)

	studentSvc := student.NewService(stdRepo, batchRepo)
	paymentSvc := payment.NewService(pmtRepo, nil)
	branchSvc := branch.NewService(branchRepo)

	server := NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			StudentSvc:     studentSvc,
			PaymentSvc:     paymentSvc,
			BatchSvc:       batch.NewService(batchRepo, stdRepo),
			BranchSvc:      branchSvc,
			ReportSvc:      report.NewService(branchRepo, stdRepo, batchRepo),
			UserSvc:        user.NewService(usrRepo, mailSvc),
		},
	)
	return &env{
		server:     server,
		usrRepo:    usrRepo,
		batchRepo:  batchRepo,
		studentSvc: studentSvc,
		paymentSvc: paymentSvc,
		branchSvc:  branchSvc,
	}
}

func (e *env) createUser(t *testing.T, uname, pwd string, roles []string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      "Test User",
		Username:  uname,
		Email:     uname + "@test.cd",
		Roles:     roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := e.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (e *env) createBatch(t *testing.T) batch.Batch {
	now := time.Now().UTC()
	b, err := e.batchRepo.CreateBatch(context.Background(), batch.Batch{
		Name:      "Morning",
		CourseID:  1,
		BranchID:  1,
		StartDate: now,
		EndDate:   now.AddDate(0, 6, 0),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return b
}

func (e *env) enrollStudent(t *testing.T, batchID int, email string, fee int64) student.Student {
	std, err := e.studentSvc.Enroll(context.Background(), student.NewStudent{
		Name:     "Asha Rao",
		Email:    email,
		CourseID: 1,
		BranchID: 1,
		BatchID:  batchID,
		TotalFee: decimal.NewFromInt(fee),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return std
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
