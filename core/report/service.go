package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/student"
)

// topPerformerCount caps the consolidated report's ranking.
const topPerformerCount = 5

type Service struct {
	branches branch.Repository
	students student.Repository
	batches  batch.Repository
}

func NewService(branches branch.Repository, students student.Repository, batches batch.Repository) *Service {
	return &Service{branches: branches, students: students, batches: batches}
}

// MonthlyTrend walks the calendar months from the one containing start to the
// one containing end and sums each branch ledger over the full month. Months
// partially covered by the range still report their whole calendar span.
func (svc *Service) MonthlyTrend(ctx context.Context, branchID int, start, end time.Time) ([]MonthlyEntry, error) {
	if _, err := svc.branches.GetBranchByID(ctx, branchID); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return []MonthlyEntry{}, nil
	}

	entries := make([]MonthlyEntry, 0, 12)
	last := startOfMonth(end)
	for month := startOfMonth(start); !month.After(last); month = month.AddDate(0, 1, 0) {
		next := month.AddDate(0, 1, 0)
		income, err := svc.branches.SumIncome(ctx, branchID, month, next)
		if err != nil {
			return nil, errors.Wrap(err, "summing monthly income")
		}
		expense, err := svc.branches.SumExpense(ctx, branchID, month, next)
		if err != nil {
			return nil, errors.Wrap(err, "summing monthly expense")
		}
		entries = append(entries, MonthlyEntry{
			Month:      month.Format("2006-01"),
			Income:     income,
			Expense:    expense,
			ProfitLoss: income.Sub(expense),
		})
	}
	return entries, nil
}

// Consolidated rolls every active branch up over [start, end] and ranks the
// top performers by profit/loss descending, branch id ascending on ties.
func (svc *Service) Consolidated(ctx context.Context, start, end time.Time) (Consolidated, error) {
	active, err := svc.branches.QueryActiveBranches(ctx)
	if err != nil {
		return Consolidated{}, errors.Wrap(err, "querying active branches")
	}

	from, to := branch.DateOnly(start), branch.DateOnly(end).AddDate(0, 0, 1)
	rep := Consolidated{
		Start:        from.Format("2006-01-02"),
		End:          branch.DateOnly(end).Format("2006-01-02"),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Branches:     make([]BranchPerformance, 0, len(active)),
	}

	for _, br := range active {
		income, err := svc.branches.SumIncome(ctx, br.ID, from, to)
		if err != nil {
			return Consolidated{}, errors.Wrap(err, "summing branch income")
		}
		expense, err := svc.branches.SumExpense(ctx, br.ID, from, to)
		if err != nil {
			return Consolidated{}, errors.Wrap(err, "summing branch expense")
		}

		profitLoss := income.Sub(expense)
		margin := decimal.Zero
		if !income.IsZero() {
			margin = profitLoss.Div(income).Mul(decimal.NewFromInt(100)).Round(2)
		}
		rep.Branches = append(rep.Branches, BranchPerformance{
			BranchID:     br.ID,
			BranchName:   br.Name,
			TotalIncome:  income,
			TotalExpense: expense,
			ProfitLoss:   profitLoss,
			ProfitMargin: margin,
		})
		rep.TotalIncome = rep.TotalIncome.Add(income)
		rep.TotalExpense = rep.TotalExpense.Add(expense)
	}
	rep.ProfitLoss = rep.TotalIncome.Sub(rep.TotalExpense)

	ranked := make([]BranchPerformance, len(rep.Branches))
	copy(ranked, rep.Branches)
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].ProfitLoss.Equal(ranked[j].ProfitLoss) {
			return ranked[i].ProfitLoss.GreaterThan(ranked[j].ProfitLoss)
		}
		return ranked[i].BranchID < ranked[j].BranchID
	})
	if len(ranked) > topPerformerCount {
		ranked = ranked[:topPerformerCount]
	}
	rep.TopPerformers = ranked

	return rep, nil
}

// OutstandingDues lists every student still owing money, grouped by batch
// with per-batch subtotals and a grand total.
func (svc *Service) OutstandingDues(ctx context.Context, filter DuesFilter) (DuesReport, error) {
	students, err := svc.students.FilterStudents(ctx, student.QueryFilter{
		BranchID: filter.BranchID,
		BatchID:  filter.BatchID,
		WithDues: true,
	})
	if err != nil {
		return DuesReport{}, errors.Wrap(err, "filtering indebted students")
	}

	grouped := make(map[int][]StudentDues)
	for _, std := range students {
		grouped[std.BatchID] = append(grouped[std.BatchID], StudentDues{
			StudentID:  std.ID,
			Name:       std.Name,
			FinalFee:   std.FinalFee,
			PaidAmount: std.PaidAmount,
			DueAmount:  std.DueAmount,
		})
	}

	batchIDs := make([]int, 0, len(grouped))
	for id := range grouped {
		batchIDs = append(batchIDs, id)
	}
	sort.Ints(batchIDs)

	rep := DuesReport{Batches: make([]BatchDues, 0, len(batchIDs)), GrandTotal: decimal.Zero}
	for _, batchID := range batchIDs {
		duers := grouped[batchID]
		sort.Slice(duers, func(i, j int) bool { return duers[i].StudentID < duers[j].StudentID })

		var batchName string
		if b, err := svc.batches.GetBatchByID(ctx, batchID); err == nil {
			batchName = b.Name
		}

		subtotal := decimal.Zero
		for _, d := range duers {
			subtotal = subtotal.Add(d.DueAmount)
		}
		rep.Batches = append(rep.Batches, BatchDues{
			BatchID:   batchID,
			BatchName: batchName,
			Students:  duers,
			Subtotal:  subtotal,
		})
		rep.GrandTotal = rep.GrandTotal.Add(subtotal)
	}
	return rep, nil
}

func startOfMonth(ts time.Time) time.Time {
	y, m, _ := ts.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
