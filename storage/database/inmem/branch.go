package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core/branch"
)

type branchRepository struct {
	db *DB
}

func NewBranchRepository(db *DB) branch.Repository {
	return &branchRepository{db: db}
}

func (repo *branchRepository) CreateBranch(_ context.Context, b branch.Branch) (branch.Branch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.branches {
		if existing.Code == b.Code {
			return branch.Branch{}, branch.ErrCodeExists
		}
	}
	repo.db.branchSeq++
	b.ID = repo.db.branchSeq
	repo.db.branches[b.ID] = &b
	return b, nil
}

func (repo *branchRepository) GetBranchByID(_ context.Context, id int) (branch.Branch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if b, ok := repo.db.branches[id]; ok {
		return *b, nil
	}
	return branch.Branch{}, branch.ErrNotFound
}

func (repo *branchRepository) queryBranches(activeOnly bool) []branch.Branch {
	branches := make([]branch.Branch, 0, len(repo.db.branches))
	for _, b := range repo.db.branches {
		if activeOnly && !b.IsActive {
			continue
		}
		branches = append(branches, *b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].ID < branches[j].ID })
	return branches
}

func (repo *branchRepository) QueryAllBranches(_ context.Context) ([]branch.Branch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.queryBranches(false), nil
}

func (repo *branchRepository) QueryActiveBranches(_ context.Context) ([]branch.Branch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.queryBranches(true), nil
}

func (repo *branchRepository) CreateIncome(_ context.Context, e branch.Entry) (branch.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.income[e.ID] = &e
	return e, nil
}

func (repo *branchRepository) CreateExpense(_ context.Context, e branch.Entry) (branch.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.expenses[e.ID] = &e
	return e, nil
}

func sumEntries(entries map[string]*branch.Entry, branchID int, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.BranchID != branchID {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}

func (repo *branchRepository) SumIncome(_ context.Context, branchID int, from, to time.Time) (decimal.Decimal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return sumEntries(repo.db.income, branchID, from, to), nil
}

func (repo *branchRepository) SumExpense(_ context.Context, branchID int, from, to time.Time) (decimal.Decimal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return sumEntries(repo.db.expenses, branchID, from, to), nil
}
