package branch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core"
)

var (
	// errors
	ErrNotFound   = errors.New("branch not found")
	ErrCodeExists = errors.New("a branch with this code already exists")

	errAmountNotPositive = "amount must be greater than zero"
)

type (
	Repository interface {
		CreateBranch(ctx context.Context, b Branch) (Branch, error)
		GetBranchByID(ctx context.Context, id int) (Branch, error)
		QueryAllBranches(ctx context.Context) ([]Branch, error)
		QueryActiveBranches(ctx context.Context) ([]Branch, error)
		CreateIncome(ctx context.Context, e Entry) (Entry, error)
		CreateExpense(ctx context.Context, e Entry) (Entry, error)
		// SumIncome totals the income ledger for the branch over [from, to).
		SumIncome(ctx context.Context, branchID int, from, to time.Time) (decimal.Decimal, error)
		// SumExpense totals the expense ledger for the branch over [from, to).
		SumExpense(ctx context.Context, branchID int, from, to time.Time) (decimal.Decimal, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nb NewBranch) (Branch, error) {
	if err := core.Validate.Struct(nb); err != nil {
		return Branch{}, err
	}

	now := time.Now().UTC()
	b := Branch{
		Name:      core.CleanString(nb.Name),
		Code:      core.CleanString(nb.Code, true /* lower */),
		Address:   nb.Address,
		Phone:     nb.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b, err := svc.repo.CreateBranch(ctx, b)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Branch{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Branch{}, err
	}
	return b, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Branch, error) {
	return svc.repo.GetBranchByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Branch, error) {
	return svc.repo.QueryAllBranches(ctx)
}

func (svc *Service) QueryActive(ctx context.Context) ([]Branch, error) {
	return svc.repo.QueryActiveBranches(ctx)
}

// RecordIncome appends an entry to the branch's income ledger.
func (svc *Service) RecordIncome(ctx context.Context, branchID int, ne NewEntry) (Entry, error) {
	entry, err := svc.newEntry(ctx, branchID, ne)
	if err != nil {
		return Entry{}, err
	}
	return svc.repo.CreateIncome(ctx, entry)
}

// RecordExpense appends an entry to the branch's expense ledger.
func (svc *Service) RecordExpense(ctx context.Context, branchID int, ne NewEntry) (Entry, error) {
	entry, err := svc.newEntry(ctx, branchID, ne)
	if err != nil {
		return Entry{}, err
	}
	return svc.repo.CreateExpense(ctx, entry)
}

// Financials sums both ledgers for the branch over [start, end] (end date
// inclusive, whole days) and derives profit/loss and margin. Margin is 0 when
// there is no income, not a division error.
func (svc *Service) Financials(ctx context.Context, branchID int, start, end time.Time) (Financials, error) {
	if _, err := svc.repo.GetBranchByID(ctx, branchID); err != nil {
		return Financials{}, err
	}

	from, to := DateOnly(start), DateOnly(end).AddDate(0, 0, 1)
	income, err := svc.repo.SumIncome(ctx, branchID, from, to)
	if err != nil {
		return Financials{}, errors.Wrap(err, "summing income")
	}
	expense, err := svc.repo.SumExpense(ctx, branchID, from, to)
	if err != nil {
		return Financials{}, errors.Wrap(err, "summing expense")
	}

	profitLoss := income.Sub(expense)
	margin := decimal.Zero
	if !income.IsZero() {
		margin = profitLoss.Div(income).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return Financials{
		BranchID:     branchID,
		Start:        from.Format("2006-01-02"),
		End:          DateOnly(end).Format("2006-01-02"),
		TotalIncome:  income,
		TotalExpense: expense,
		ProfitLoss:   profitLoss,
		ProfitMargin: margin,
	}, nil
}

func (svc *Service) newEntry(ctx context.Context, branchID int, ne NewEntry) (Entry, error) {
	if err := core.Validate.Struct(ne); err != nil {
		return Entry{}, err
	}
	if ne.Amount.LessThanOrEqual(decimal.Zero) {
		return Entry{}, core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errAmountNotPositive})
	}
	if _, err := svc.repo.GetBranchByID(ctx, branchID); err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:         uuid.New().String(),
		BranchID:   branchID,
		Category:   core.CleanString(ne.Category, true /* lower */),
		Amount:     ne.Amount,
		Date:       DateOnly(ne.Date),
		Notes:      ne.Notes,
		RecordedBy: ne.RecordedBy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// DateOnly truncates ts to UTC midnight; ledger entries are keyed by calendar day.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
