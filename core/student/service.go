package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core"
)

var (
	// errors
	ErrNotFound  = errors.New("student not found")
	ErrInactive  = errors.New("student is inactive")
	ErrBatchFull = errors.New("batch is full")

	errNegativeFee    = "fee amounts cannot be negative"
	errDiscountTooBig = "discount cannot exceed the total fee"
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeactivateStudent(ctx context.Context, id int) (Student, error)
	}

	// CapacityChecker reports a batch's size limits for the enrollment guard.
	CapacityChecker interface {
		BatchCapacity(ctx context.Context, batchID int) (maxStudents, enrolled int, err error)
	}

	Service struct {
		repo     Repository
		capacity CapacityChecker
	}
)

func NewService(repo Repository, capacity CapacityChecker) *Service {
	return &Service{repo: repo, capacity: capacity}
}

// Enroll creates the student's fee-ledger entry:
// final_fee = total_fee - discount_amount (floored at 0), nothing paid yet.
func (svc *Service) Enroll(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}

	if svc.capacity != nil {
		max, enrolled, err := svc.capacity.BatchCapacity(ctx, ns.BatchID)
		if err != nil {
			return Student{}, errors.Wrap(err, "checking batch capacity")
		}
		if max > 0 && enrolled >= max {
			return Student{}, core.NewValidationError(ErrBatchFull, core.FieldError{Field: "batch_id", Error: ErrBatchFull.Error()})
		}
	}

	finalFee := decimal.Max(decimal.Zero, ns.TotalFee.Sub(ns.DiscountAmount))
	now := time.Now().UTC()
	std := Student{
		Name:           core.CleanString(ns.Name),
		Email:          core.CleanString(ns.Email, true /* lower */),
		Phone:          ns.Phone,
		CourseID:       ns.CourseID,
		BranchID:       ns.BranchID,
		BatchID:        ns.BatchID,
		TotalFee:       ns.TotalFee,
		AdmissionFee:   ns.AdmissionFee,
		DiscountAmount: ns.DiscountAmount,
		FinalFee:       finalFee,
		PaidAmount:     decimal.Zero,
		DueAmount:      finalFee,
		PaymentStatus:  StatusPending,
		IsActive:       true,
		EnrolledAt:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	return svc.repo.FilterStudents(ctx, filter)
}

// Deactivate soft-deactivates the student. The record is never hard-removed
// while payments reference it.
func (svc *Service) Deactivate(ctx context.Context, id int) (Student, error) {
	return svc.repo.DeactivateStudent(ctx, id)
}

// Validate checks the enrollment request's fee arithmetic on top of the
// struct tags: no negative amounts, discount bounded by the total fee.
func (ns NewStudent) Validate() error {
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}

	var flds []core.FieldError
	for fld, amt := range map[string]decimal.Decimal{
		"total_fee":       ns.TotalFee,
		"admission_fee":   ns.AdmissionFee,
		"discount_amount": ns.DiscountAmount,
	} {
		if amt.IsNegative() {
			flds = append(flds, core.FieldError{Field: fld, Error: errNegativeFee})
		}
	}
	if ns.DiscountAmount.GreaterThan(ns.TotalFee) {
		flds = append(flds, core.FieldError{Field: "discount_amount", Error: errDiscountTooBig})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
