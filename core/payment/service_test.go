package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
	inmemdb "github.com/edvantage/academy/storage/database/inmem"
)

func setup(t *testing.T) (*payment.Service, *student.Service) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	batchRepo := inmemdb.NewBatchRepository(db)
	now := time.Now().UTC()
	if _, err = batchRepo.CreateBatch(context.Background(), batch.Batch{
		Name:      "Morning",
		CourseID:  1,
		BranchID:  1,
		StartDate: now,
		EndDate:   now.AddDate(0, 6, 0),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}

	stdSvc := student.NewService(inmemdb.NewStudentRepository(db), batchRepo)
	pmtSvc := payment.NewService(inmemdb.NewPaymentRepository(db), nil)
	return pmtSvc, stdSvc
}

func enroll(t *testing.T, svc *student.Service, totalFee, discount int64) student.Student {
	std, err := svc.Enroll(context.Background(), student.NewStudent{
		Name:           "Asha Rao",
		Email:          "asha@test.cd",
		CourseID:       1,
		BranchID:       1,
		BatchID:        1,
		TotalFee:       decimal.NewFromInt(totalFee),
		DiscountAmount: decimal.NewFromInt(discount),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return std
}

func newCollection(studentID int, amount int64) payment.NewPayment {
	return payment.NewPayment{
		StudentID: studentID,
		Amount:    decimal.NewFromInt(amount),
		Method:    payment.MethodCash,
		Kind:      payment.KindInstallment,
	}
}

func TestService_Collect(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 10000, 0)

	pmt, std, err := pmtSvc.Collect(ctx, newCollection(std.ID, 4000))
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if pmt.ID == "" {
		t.Error("Collect() did not assign a payment ID")
	}
	if want := decimal.NewFromInt(4000); !std.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", std.PaidAmount, want)
	}
	if want := decimal.NewFromInt(6000); !std.DueAmount.Equal(want) {
		t.Errorf("DueAmount = %s, want %s", std.DueAmount, want)
	}
	if std.PaymentStatus != student.StatusPartial {
		t.Errorf("PaymentStatus = %s, want %s", std.PaymentStatus, student.StatusPartial)
	}

	_, std, err = pmtSvc.Collect(ctx, newCollection(std.ID, 6000))
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if !std.DueAmount.IsZero() {
		t.Errorf("DueAmount = %s, want 0", std.DueAmount)
	}
	if std.PaymentStatus != student.StatusCompleted {
		t.Errorf("PaymentStatus = %s, want %s", std.PaymentStatus, student.StatusCompleted)
	}
}

func TestService_Collect_validation(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 10000, 0)

	tests := []struct {
		name      string
		mutate    func(*payment.NewPayment)
		wantField string
	}{
		{
			name:      "zero amount",
			mutate:    func(np *payment.NewPayment) { np.Amount = decimal.Zero },
			wantField: "amount",
		},
		{
			name:      "negative amount",
			mutate:    func(np *payment.NewPayment) { np.Amount = decimal.NewFromInt(-100) },
			wantField: "amount",
		},
		{
			name:      "unknown method",
			mutate:    func(np *payment.NewPayment) { np.Method = "barter" },
			wantField: "payment_method",
		},
		{
			name:      "adjustment kind rejected",
			mutate:    func(np *payment.NewPayment) { np.Kind = payment.KindAdjustment },
			wantField: "payment_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := newCollection(std.ID, 1000)
			tt.mutate(&np)

			_, _, err := pmtSvc.Collect(ctx, np)
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok {
				t.Fatalf("Collect() error = %v, want *core.ValidationError", err)
			}
			var found bool
			for _, fld := range vErr.Fields {
				if fld.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("ValidationError.Fields = %v, want field %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func TestService_Collect_studentChecks(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()

	if _, _, err := pmtSvc.Collect(ctx, newCollection(999, 1000)); errors.Cause(err) != student.ErrNotFound {
		t.Errorf("Collect() error = %v, want %v", err, student.ErrNotFound)
	}

	std := enroll(t, stdSvc, 10000, 0)
	if _, err := stdSvc.Deactivate(ctx, std.ID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	if _, _, err := pmtSvc.Collect(ctx, newCollection(std.ID, 1000)); errors.Cause(err) != student.ErrInactive {
		t.Errorf("Collect() error = %v, want %v", err, student.ErrInactive)
	}
}

func TestService_Collect_concurrent(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 100000, 0)

	const (
		workers  = 4
		perWork  = 25
		perPay   = 100
		expected = workers * perWork * perPay
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWork; j++ {
				if _, _, err := pmtSvc.Collect(ctx, newCollection(std.ID, perPay)); err != nil {
					t.Errorf("Collect() failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := stdSvc.GetByID(ctx, std.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if want := decimal.NewFromInt(expected); !got.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s (lost updates)", got.PaidAmount, want)
	}
	if want := decimal.NewFromInt(100000 - expected); !got.DueAmount.Equal(want) {
		t.Errorf("DueAmount = %s, want %s", got.DueAmount, want)
	}
}

// contentiousRepository conflicts on the first failures calls, then commits.
type contentiousRepository struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (repo *contentiousRepository) CreateForStudent(_ context.Context, pmt payment.Payment) (payment.Payment, student.Student, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.calls++
	if repo.calls <= repo.failures {
		return payment.Payment{}, student.Student{}, payment.ErrTxConflict
	}
	std := student.Student{ID: pmt.StudentID, PaidAmount: pmt.Amount, PaymentStatus: student.StatusPartial}
	return pmt, std, nil
}

func (repo *contentiousRepository) GetPaymentByID(context.Context, string) (payment.Payment, error) {
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *contentiousRepository) FilterPayments(context.Context, payment.QueryFilter) ([]payment.Payment, error) {
	return nil, nil
}

func TestService_Collect_retriesConflicts(t *testing.T) {
	repo := &contentiousRepository{failures: 2}
	svc := payment.NewService(repo, nil)

	pmt, std, err := svc.Collect(context.Background(), newCollection(1, 4000))
	if err != nil {
		t.Fatalf("Collect() failed after transient conflicts: %v", err)
	}
	if repo.calls != 3 {
		t.Errorf("repo calls = %d, want 3 (2 conflicts + 1 commit)", repo.calls)
	}
	if pmt.ID == "" {
		t.Error("Collect() did not return the committed payment")
	}
	if want := decimal.NewFromInt(4000); !std.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", std.PaidAmount, want)
	}
}

func TestService_Collect_conflictsExhausted(t *testing.T) {
	repo := &contentiousRepository{failures: 100} // never stops conflicting
	svc := payment.NewService(repo, nil)

	_, _, err := svc.Collect(context.Background(), newCollection(1, 4000))
	if _, ok := errors.Cause(err).(*core.ConflictError); !ok {
		t.Fatalf("Collect() error = %v, want *core.ConflictError", err)
	}
	if repo.calls < 2 {
		t.Errorf("repo calls = %d, want more than one attempt", repo.calls)
	}
}

func TestService_Adjust(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 10000, 0)

	if _, _, err := pmtSvc.Collect(ctx, newCollection(std.ID, 5000)); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	pmt, std, err := pmtSvc.Adjust(ctx, payment.NewAdjustment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(-2000),
		Reason:    "double entry",
	})
	if err != nil {
		t.Fatalf("Adjust() failed: %v", err)
	}
	if pmt.Kind != payment.KindAdjustment {
		t.Errorf("Kind = %s, want %s", pmt.Kind, payment.KindAdjustment)
	}
	if pmt.Reason.String != "double entry" {
		t.Errorf("Reason = %q, want %q", pmt.Reason.String, "double entry")
	}
	if want := decimal.NewFromInt(3000); !std.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", std.PaidAmount, want)
	}
	if want := decimal.NewFromInt(7000); !std.DueAmount.Equal(want) {
		t.Errorf("DueAmount = %s, want %s", std.DueAmount, want)
	}
	if std.PaymentStatus != student.StatusPartial {
		t.Errorf("PaymentStatus = %s, want %s", std.PaymentStatus, student.StatusPartial)
	}
}

func TestService_Adjust_ledgerFloor(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 10000, 0)

	if _, _, err := pmtSvc.Collect(ctx, newCollection(std.ID, 1000)); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	// reversing more than was collected must not drive the ledger negative
	_, _, err := pmtSvc.Adjust(ctx, payment.NewAdjustment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(-5000),
		Reason:    "refund",
	})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("Adjust() error = %v, want *core.ValidationError", err)
	}
	if vErr.Err != payment.ErrLedgerNegative {
		t.Errorf("ValidationError.Err = %v, want %v", vErr.Err, payment.ErrLedgerNegative)
	}

	// the failed adjustment must not have touched the ledger
	got, err := stdSvc.GetByID(ctx, std.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if want := decimal.NewFromInt(1000); !got.PaidAmount.Equal(want) {
		t.Errorf("PaidAmount = %s, want %s", got.PaidAmount, want)
	}
}

func TestService_Adjust_requiresReason(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	std := enroll(t, stdSvc, 10000, 0)

	_, _, err := pmtSvc.Adjust(context.Background(), payment.NewAdjustment{
		StudentID: std.ID,
		Amount:    decimal.NewFromInt(-100),
	})
	if err == nil {
		t.Fatal("Adjust() without reason succeeded, want validation error")
	}
}

func TestService_Filter(t *testing.T) {
	pmtSvc, stdSvc := setup(t)
	ctx := context.Background()
	std := enroll(t, stdSvc, 10000, 0)

	for _, amt := range []int64{1000, 2000} {
		if _, _, err := pmtSvc.Collect(ctx, newCollection(std.ID, amt)); err != nil {
			t.Fatalf("Collect() failed: %v", err)
		}
	}

	payments, err := pmtSvc.Filter(ctx, payment.QueryFilter{StudentID: std.ID})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(payments) != 2 {
		t.Errorf("Filter() returned %d payments, want 2", len(payments))
	}

	payments, err = pmtSvc.Filter(ctx, payment.QueryFilter{Kind: payment.KindAdmission})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("Filter() returned %d payments, want 0", len(payments))
	}
}
