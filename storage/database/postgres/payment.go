package postgresdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
)

var paymentColumns = `id, student_id, amount, method, kind, transaction_id, notes, reason, collected_by, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

// CreateForStudent inserts the payment event and folds it into the student
// ledger in one transaction. The student row is locked for the duration so
// concurrent collections serialize instead of losing updates.
func (repo *paymentRepository) CreateForStudent(ctx context.Context, pmt payment.Payment) (payment.Payment, student.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return payment.Payment{}, student.Student{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var std student.Student
	query := `SELECT ` + studentColumns + ` FROM student WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &std, query, pmt.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, student.Student{}, student.ErrNotFound
		}
		return payment.Payment{}, student.Student{}, txError(err, "locking student row")
	}
	if !std.IsActive {
		return payment.Payment{}, student.Student{}, student.ErrInactive
	}
	if std.PaidAmount.Add(pmt.Amount).IsNegative() {
		return payment.Payment{}, student.Student{}, payment.ErrLedgerNegative
	}

	query = `
INSERT INTO payment (id, student_id, amount, method, kind, transaction_id, notes, reason, collected_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.ExecContext(ctx, query,
		pmt.ID, pmt.StudentID, pmt.Amount, pmt.Method, pmt.Kind,
		pmt.TransactionID, pmt.Notes, pmt.Reason, pmt.CollectedBy, pmt.CreatedAt)
	if err != nil {
		return payment.Payment{}, student.Student{}, txError(err, "inserting payment")
	}

	std.ApplyPayment(pmt.Amount)
	std.UpdatedAt = pmt.CreatedAt
	query = `
UPDATE student
SET paid_amount = $2, due_amount = $3, payment_status = $4, updated_at = $5
WHERE id = $1`
	_, err = tx.ExecContext(ctx, query,
		std.ID, std.PaidAmount, std.DueAmount, std.PaymentStatus, std.UpdatedAt)
	if err != nil {
		return payment.Payment{}, student.Student{}, txError(err, "updating student ledger")
	}

	if err = tx.Commit(); err != nil {
		return payment.Payment{}, student.Student{}, txError(err, "committing transaction")
	}
	return pmt, std, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	var pmt payment.Payment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &pmt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "getting payment")
	}
	return pmt, nil
}

func (repo *paymentRepository) FilterPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StudentID != 0 {
		conds = append(conds, "p.student_id = "+arg(filter.StudentID))
	}
	if filter.BranchID != 0 {
		conds = append(conds, "s.branch_id = "+arg(filter.BranchID))
	}
	if filter.Method != "" {
		conds = append(conds, "p.method = "+arg(filter.Method))
	}
	if filter.Kind != "" {
		conds = append(conds, "p.kind = "+arg(filter.Kind))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "p.created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "p.created_at < "+arg(filter.To))
	}

	query := `
SELECT p.id, p.student_id, p.amount, p.method, p.kind, p.transaction_id, p.notes, p.reason,
       p.collected_by, p.created_at
FROM payment p
         JOIN student s ON s.id = p.student_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at, p.id"

	payments := make([]payment.Payment, 0)
	if err := repo.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering payments")
	}
	return payments, nil
}

// txError maps serialization and deadlock failures to ErrTxConflict so the
// payment service can retry them.
func txError(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return payment.ErrTxConflict
		}
	}
	return errors.Wrap(err, msg)
}
