package report

import (
	"github.com/shopspring/decimal"
)

// MonthlyEntry is one month of a branch income/expense trend.
type MonthlyEntry struct {
	Month      string          `json:"month"` // YYYY-MM
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

// BranchPerformance is one branch's line in the consolidated report.
type BranchPerformance struct {
	BranchID     int             `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	ProfitLoss   decimal.Decimal `json:"profit_loss"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// Consolidated sums every active branch over a date range and ranks the top
// performers by profit/loss.
type Consolidated struct {
	Start         string              `json:"start_date"`
	End           string              `json:"end_date"`
	TotalIncome   decimal.Decimal     `json:"total_income"`
	TotalExpense  decimal.Decimal     `json:"total_expense"`
	ProfitLoss    decimal.Decimal     `json:"profit_loss"`
	Branches      []BranchPerformance `json:"branches"`
	TopPerformers []BranchPerformance `json:"top_performers"`
}

// StudentDues is one indebted student in the outstanding-dues report.
type StudentDues struct {
	StudentID  int             `json:"student_id"`
	Name       string          `json:"name"`
	FinalFee   decimal.Decimal `json:"final_fee"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	DueAmount  decimal.Decimal `json:"due_amount"`
}

// BatchDues groups indebted students per batch.
type BatchDues struct {
	BatchID   int             `json:"batch_id"`
	BatchName string          `json:"batch_name"`
	Students  []StudentDues   `json:"students"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// DuesReport lists every student with an outstanding balance, grouped by batch.
type DuesReport struct {
	Batches    []BatchDues     `json:"batches"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// DuesFilter narrows the outstanding-dues report; zero values mean "all".
type DuesFilter struct {
	BranchID int
	BatchID  int
}
