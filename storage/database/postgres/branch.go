package postgresdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core/branch"
)

var branchColumns = `id, name, code, address, phone, is_active, created_at, updated_at`

type branchRepository struct {
	db *sqlx.DB
}

func NewBranchRepository(db *sqlx.DB) *branchRepository {
	return &branchRepository{db: db}
}

func (repo *branchRepository) CreateBranch(ctx context.Context, b branch.Branch) (branch.Branch, error) {
	query := `
INSERT INTO branch (name, code, address, phone, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		b.Name, b.Code, b.Address, b.Phone, b.IsActive, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return branch.Branch{}, branch.ErrCodeExists
		}
		return branch.Branch{}, errors.Wrap(err, "inserting branch")
	}
	return b, nil
}

func (repo *branchRepository) GetBranchByID(ctx context.Context, id int) (branch.Branch, error) {
	var b branch.Branch
	query := `SELECT ` + branchColumns + ` FROM branch WHERE id = $1`
	if err := repo.db.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return branch.Branch{}, branch.ErrNotFound
		}
		return branch.Branch{}, errors.Wrap(err, "getting branch")
	}
	return b, nil
}

func (repo *branchRepository) QueryAllBranches(ctx context.Context) ([]branch.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branch ORDER BY id`
	branches := make([]branch.Branch, 0)
	if err := repo.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, errors.Wrap(err, "querying branches")
	}
	return branches, nil
}

func (repo *branchRepository) QueryActiveBranches(ctx context.Context) ([]branch.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branch WHERE is_active ORDER BY id`
	branches := make([]branch.Branch, 0)
	if err := repo.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, errors.Wrap(err, "querying active branches")
	}
	return branches, nil
}

func (repo *branchRepository) CreateIncome(ctx context.Context, e branch.Entry) (branch.Entry, error) {
	return repo.createEntry(ctx, "income_entry", e)
}

func (repo *branchRepository) CreateExpense(ctx context.Context, e branch.Entry) (branch.Entry, error) {
	return repo.createEntry(ctx, "expense_entry", e)
}

func (repo *branchRepository) createEntry(ctx context.Context, table string, e branch.Entry) (branch.Entry, error) {
	query := `
INSERT INTO ` + table + ` (id, branch_id, category, amount, date, notes, recorded_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, query,
		e.ID, e.BranchID, e.Category, e.Amount, e.Date, e.Notes, e.RecordedBy, e.CreatedAt)
	if err != nil {
		return branch.Entry{}, errors.Wrap(err, "inserting ledger entry")
	}
	return e, nil
}

func (repo *branchRepository) SumIncome(ctx context.Context, branchID int, from, to time.Time) (decimal.Decimal, error) {
	return repo.sumEntries(ctx, "income_entry", branchID, from, to)
}

func (repo *branchRepository) SumExpense(ctx context.Context, branchID int, from, to time.Time) (decimal.Decimal, error) {
	return repo.sumEntries(ctx, "expense_entry", branchID, from, to)
}

// sumEntries totals one ledger over [from, to).
func (repo *branchRepository) sumEntries(ctx context.Context, table string, branchID int, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
SELECT COALESCE(SUM(amount), 0)
FROM ` + table + `
WHERE branch_id = $1
  AND date >= $2
  AND date < $3`
	if err := repo.db.QueryRowContext(ctx, query, branchID, from, to).Scan(&total); err != nil {
		return decimal.Zero, errors.Wrap(err, "summing ledger entries")
	}
	return total, nil
}
