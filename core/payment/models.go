package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Method is how the money came in.
type Method string

const (
	MethodCash        Method = "cash"
	MethodBankDeposit Method = "bank_deposit"
	MethodMobileMoney Method = "mobile_money"
	MethodCard        Method = "card"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodBankDeposit, MethodMobileMoney, MethodCard:
		return true
	default:
		return false
	}
}

// Kind distinguishes the ledger entry types. Adjustments are the only signed
// entries; they exist so corrections never touch historical rows.
type Kind string

const (
	KindAdmission   Kind = "admission"
	KindInstallment Kind = "installment"
	KindAdjustment  Kind = "adjustment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAdmission, KindInstallment, KindAdjustment:
		return true
	default:
		return false
	}
}

// Payment is an immutable ledger event: created once, never updated or
// deleted. Reversals go through Adjust, not through edits.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	StudentID     int             `db:"student_id" json:"student_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        Method          `db:"method" json:"method"`
	Kind          Kind            `db:"kind" json:"kind"`
	TransactionID null.String     `db:"transaction_id" json:"transaction_id,omitempty"`
	Notes         null.String     `db:"notes" json:"notes,omitempty"`
	Reason        null.String     `db:"reason" json:"reason,omitempty"` // adjustment reason code
	CollectedBy   null.String     `db:"collected_by" json:"collected_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"` // UTC
}

// NewPayment holds a fee collection request.
type NewPayment struct {
	StudentID     int             `json:"student_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Method        Method          `json:"payment_method" validate:"required"`
	Kind          Kind            `json:"payment_type" validate:"required"`
	TransactionID null.String     `json:"transaction_id"`
	Notes         null.String     `json:"notes"`
	CollectedBy   null.String     `json:"-"`
}

// NewAdjustment holds a signed correction request. A negative amount reverses
// previously recorded collections; the reason code is mandatory.
type NewAdjustment struct {
	StudentID   int             `json:"student_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required"`
	Notes       null.String     `json:"notes"`
	CollectedBy null.String     `json:"-"`
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	StudentID int
	BranchID  int
	Method    Method
	Kind      Kind
	From      time.Time
	To        time.Time // exclusive
}
