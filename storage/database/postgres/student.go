package postgresdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core/student"
)

var studentColumns = `id, name, email, phone, course_id, branch_id, batch_id, total_fee, admission_fee,
discount_amount, final_fee, paid_amount, due_amount, payment_status, is_active, enrolled_at,
deactivated_at, created_at, updated_at`

type studentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	query := `
INSERT INTO student (name, email, phone, course_id, branch_id, batch_id, total_fee, admission_fee,
                     discount_amount, final_fee, paid_amount, due_amount, payment_status, is_active,
                     enrolled_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		std.Name, std.Email, std.Phone, std.CourseID, std.BranchID, std.BatchID,
		std.TotalFee, std.AdmissionFee, std.DiscountAmount, std.FinalFee,
		std.PaidAmount, std.DueAmount, std.PaymentStatus, std.IsActive,
		std.EnrolledAt, std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	var std student.Student
	query := `SELECT ` + studentColumns + ` FROM student WHERE id = $1`
	if err := repo.db.GetContext(ctx, &std, query, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return std, nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.BranchID != 0 {
		conds = append(conds, "branch_id = "+arg(filter.BranchID))
	}
	if filter.BatchID != 0 {
		conds = append(conds, "batch_id = "+arg(filter.BatchID))
	}
	if filter.CourseID != 0 {
		conds = append(conds, "course_id = "+arg(filter.CourseID))
	}
	if filter.PaymentStatus != "" {
		conds = append(conds, "payment_status = "+arg(filter.PaymentStatus))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if filter.WithDues {
		conds = append(conds, "due_amount > 0")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, "(name ILIKE "+p+" OR email ILIKE "+p+")")
	}

	query := `SELECT ` + studentColumns + ` FROM student`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	query := `
UPDATE student
SET name = $2, email = $3, phone = $4, course_id = $5, branch_id = $6, batch_id = $7, updated_at = $8
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		std.ID, std.Name, std.Email, std.Phone, std.CourseID, std.BranchID, std.BatchID, std.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudentByID(ctx, std.ID)
}

func (repo *studentRepository) DeactivateStudent(ctx context.Context, id int) (student.Student, error) {
	query := `
UPDATE student
SET is_active = FALSE, deactivated_at = now(), updated_at = now()
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "deactivating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudentByID(ctx, id)
}
