package student

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// PaymentStatus tracks where a student's fee ledger stands.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPartial   PaymentStatus = "partial"
	StatusCompleted PaymentStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusCompleted:
		return true
	default:
		return false
	}
}

// StatusFor derives the payment status from the amounts alone:
// nothing paid -> pending; anything short of the final fee -> partial;
// the final fee or more -> completed.
func StatusFor(paid, finalFee decimal.Decimal) PaymentStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return StatusPending
	case paid.LessThan(finalFee):
		return StatusPartial
	default:
		return StatusCompleted
	}
}

// Student is the fee-ledger view of an enrolled student. PaidAmount, DueAmount
// and PaymentStatus are derived state and are only ever mutated through
// ApplyPayment inside the payment recorder's transaction.
type Student struct {
	ID             int             `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Email          string          `db:"email" json:"email"`
	Phone          null.String     `db:"phone" json:"phone,omitempty"`
	CourseID       int             `db:"course_id" json:"course_id"`
	BranchID       int             `db:"branch_id" json:"branch_id"`
	BatchID        int             `db:"batch_id" json:"batch_id"`
	TotalFee       decimal.Decimal `db:"total_fee" json:"total_fee"`
	AdmissionFee   decimal.Decimal `db:"admission_fee" json:"admission_fee"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	FinalFee       decimal.Decimal `db:"final_fee" json:"final_fee"`
	PaidAmount     decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	DueAmount      decimal.Decimal `db:"due_amount" json:"due_amount"`
	PaymentStatus  PaymentStatus   `db:"payment_status" json:"payment_status"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	EnrolledAt     time.Time       `db:"enrolled_at" json:"enrolled_at"` // UTC
	DeactivatedAt  null.Time       `db:"deactivated_at" json:"deactivated_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"` // UTC
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"` // UTC
}

// ApplyPayment folds a payment delta into the ledger. The delta may be
// negative for adjustment entries. Due amount is floored at zero.
func (s *Student) ApplyPayment(delta decimal.Decimal) {
	s.PaidAmount = s.PaidAmount.Add(delta)
	s.DueAmount = decimal.Max(decimal.Zero, s.FinalFee.Sub(s.PaidAmount))
	s.PaymentStatus = StatusFor(s.PaidAmount, s.FinalFee)
}

// NewStudent holds the enrollment request.
type NewStudent struct {
	Name           string          `json:"name" validate:"required"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          null.String     `json:"phone"`
	CourseID       int             `json:"course_id" validate:"required"`
	BranchID       int             `json:"branch_id" validate:"required"`
	BatchID        int             `json:"batch_id" validate:"required"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	AdmissionFee   decimal.Decimal `json:"admission_fee"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	BranchID      int
	BatchID       int
	CourseID      int
	PaymentStatus PaymentStatus
	IsActive      *bool
	WithDues      bool // only students with due_amount > 0
	Search        string
}
