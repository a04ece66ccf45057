package branch

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Branch owns students, batches, staff and the two financial ledgers. Its
// aggregate figures (income, expenses, profit/loss, dues) are computed views.
type Branch struct {
	ID        int         `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Code      string      `db:"code" json:"code"`
	Address   null.String `db:"address" json:"address,omitempty"`
	Phone     null.String `db:"phone" json:"phone,omitempty"`
	IsActive  bool        `db:"is_active" json:"is_active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

// Entry is one row of a branch financial ledger (income or expense). Entries
// are independent of the student fee ledger and only feed financial reports.
type Entry struct {
	ID         string          `db:"id" json:"id"`
	BranchID   int             `db:"branch_id" json:"branch_id"`
	Category   string          `db:"category" json:"category"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Date       time.Time       `db:"date" json:"date"` // date only, UTC midnight
	Notes      null.String     `db:"notes" json:"notes,omitempty"`
	RecordedBy null.String     `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"` // UTC
}

// NewBranch holds a branch creation request.
type NewBranch struct {
	Name    string      `json:"name" validate:"required"`
	Code    string      `json:"code" validate:"required,alphanum"`
	Address null.String `json:"address"`
	Phone   null.String `json:"phone"`
}

// NewEntry holds an income or expense recording request.
type NewEntry struct {
	Category   string          `json:"category" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date" validate:"required"`
	Notes      null.String     `json:"notes"`
	RecordedBy null.String     `json:"-"`
}

// Financials is the computed income/expense rollup for one branch and range.
type Financials struct {
	BranchID     int             `json:"branch_id"`
	Start        string          `json:"start_date"`
	End          string          `json:"end_date"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	ProfitLoss   decimal.Decimal `json:"profit_loss"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}
