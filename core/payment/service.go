package payment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
	// ErrTxConflict is returned by repositories when the write could not be
	// serialized against a concurrent payment on the same student.
	ErrTxConflict = errors.New("concurrent ledger update")
	// ErrLedgerNegative is returned when an adjustment would drive the
	// student's paid amount below zero.
	ErrLedgerNegative = errors.New("adjustment exceeds recorded payments")

	errAmountNotPositive = "amount must be greater than zero"
	errAmountZero        = "amount cannot be zero"
	errBadMethod         = "unknown payment method"
	errBadKind           = "unknown payment type"
)

// maxRetries bounds the optimistic retries on serialization failures before
// the caller sees a ConflictError.
const maxRetries = 3

type (
	Repository interface {
		// CreateForStudent appends pmt and folds its amount into the student's
		// fee ledger as one atomic unit: either both writes commit or neither
		// is visible. The student row stays locked for the duration.
		CreateForStudent(ctx context.Context, pmt Payment) (Payment, student.Student, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		// FilterPayments applies AND operation on available QueryFilter fields.
		FilterPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Collect records a fee collection and updates the student's ledger.
func (svc *Service) Collect(ctx context.Context, np NewPayment) (Payment, student.Student, error) {
	if err := np.Validate(); err != nil {
		return Payment{}, student.Student{}, err
	}

	pmt := Payment{
		ID:            uuid.New().String(),
		StudentID:     np.StudentID,
		Amount:        np.Amount,
		Method:        np.Method,
		Kind:          np.Kind,
		TransactionID: np.TransactionID,
		Notes:         np.Notes,
		CollectedBy:   np.CollectedBy,
		CreatedAt:     time.Now().UTC(),
	}

	pmt, std, err := svc.create(ctx, pmt)
	if err != nil {
		return Payment{}, student.Student{}, err
	}
	svc.sendReceipt(pmt, std)
	return pmt, std, nil
}

// Adjust records a signed correction entry. Historical rows are never edited;
// a reversal is just another (negative) ledger event with a reason code.
func (svc *Service) Adjust(ctx context.Context, na NewAdjustment) (Payment, student.Student, error) {
	if err := na.Validate(); err != nil {
		return Payment{}, student.Student{}, err
	}

	pmt := Payment{
		ID:          uuid.New().String(),
		StudentID:   na.StudentID,
		Amount:      na.Amount,
		Method:      MethodCash,
		Kind:        KindAdjustment,
		Reason:      null.StringFrom(na.Reason),
		Notes:       na.Notes,
		CollectedBy: na.CollectedBy,
		CreatedAt:   time.Now().UTC(),
	}

	pmt, std, err := svc.create(ctx, pmt)
	if err != nil {
		if errors.Cause(err) == ErrLedgerNegative {
			return Payment{}, student.Student{}, core.NewValidationError(ErrLedgerNegative,
				core.FieldError{Field: "amount", Error: ErrLedgerNegative.Error()})
		}
		return Payment{}, student.Student{}, err
	}
	return pmt, std, nil
}

// create drives the transactional write, retrying serialization failures a
// bounded number of times before surfacing a ConflictError.
func (svc *Service) create(ctx context.Context, pmt Payment) (Payment, student.Student, error) {
	var std student.Student
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Payment{}, student.Student{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		pmt, std, err = svc.repo.CreateForStudent(ctx, pmt)
		if errors.Cause(err) == ErrTxConflict {
			continue
		}
		if err != nil {
			return Payment{}, student.Student{}, err
		}
		return pmt, std, nil
	}
	return Payment{}, student.Student{}, core.NewConflictError(errors.Wrap(err, "retry budget exhausted"))
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Payment, error) {
	return svc.repo.FilterPayments(ctx, filter)
}

func (svc *Service) sendReceipt(pmt Payment, std student.Student) {
	if svc.mailSvc == nil || std.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nWe received your payment of %s via %s.\n"+
			"Paid to date: %s\nOutstanding balance: %s\n\nThank you.",
		std.Name, pmt.Amount.StringFixed(2), pmt.Method,
		std.PaidAmount.StringFixed(2), std.DueAmount.StringFixed(2),
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: std.Name, Address: std.Email}},
		Subject: "Payment received",
		BodyStr: body,
	})
}

// Validate checks the collection request: struct tags, positive amount and
// known enum values.
func (np NewPayment) Validate() error {
	if err := core.Validate.Struct(np); err != nil {
		return err
	}

	var flds []core.FieldError
	if np.Amount.LessThanOrEqual(decimal.Zero) {
		flds = append(flds, core.FieldError{Field: "amount", Error: errAmountNotPositive})
	}
	if !np.Method.Valid() {
		flds = append(flds, core.FieldError{Field: "payment_method", Error: errBadMethod})
	}
	if !np.Kind.Valid() || np.Kind == KindAdjustment {
		// adjustments go through Adjust; they carry a mandatory reason
		flds = append(flds, core.FieldError{Field: "payment_type", Error: errBadKind})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Validate checks the adjustment request.
func (na NewAdjustment) Validate() error {
	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	if na.Amount.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errAmountZero})
	}
	return nil
}
