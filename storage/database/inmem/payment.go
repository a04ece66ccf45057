package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
)

type paymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

// CreateForStudent holds the table lock for the whole append+recompute so the
// two writes are atomic and payments on the same student serialize.
func (repo *paymentRepository) CreateForStudent(_ context.Context, pmt payment.Payment) (payment.Payment, student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.db.students[pmt.StudentID]
	if !ok {
		return payment.Payment{}, student.Student{}, student.ErrNotFound
	}
	if !std.IsActive {
		return payment.Payment{}, student.Student{}, student.ErrInactive
	}
	if std.PaidAmount.Add(pmt.Amount).IsNegative() {
		return payment.Payment{}, student.Student{}, payment.ErrLedgerNegative
	}

	repo.db.payments[pmt.ID] = &pmt
	std.ApplyPayment(pmt.Amount)
	std.UpdatedAt = time.Now().UTC()
	return pmt, *std, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if pmt, ok := repo.db.payments[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) FilterPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := make([]payment.Payment, 0)
	for _, pmt := range repo.db.payments {
		if filter.StudentID != 0 && pmt.StudentID != filter.StudentID {
			continue
		}
		if filter.BranchID != 0 {
			std, ok := repo.db.students[pmt.StudentID]
			if !ok || std.BranchID != filter.BranchID {
				continue
			}
		}
		if filter.Method != "" && pmt.Method != filter.Method {
			continue
		}
		if filter.Kind != "" && pmt.Kind != filter.Kind {
			continue
		}
		if !filter.From.IsZero() && pmt.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !pmt.CreatedAt.Before(filter.To) {
			continue
		}
		matched = append(matched, *pmt)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}
