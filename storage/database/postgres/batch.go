package postgresdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edvantage/academy/core/batch"
)

var batchColumns = `id, name, course_id, branch_id, faculty_id, max_students, start_date, end_date,
is_active, created_at, updated_at`

type BatchRepository struct {
	db *sqlx.DB
}

func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (repo *BatchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	query := `
INSERT INTO batch (name, course_id, branch_id, faculty_id, max_students, start_date, end_date,
                   is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		b.Name, b.CourseID, b.BranchID, b.FacultyID, b.MaxStudents,
		b.StartDate, b.EndDate, b.IsActive, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return b, nil
}

func (repo *BatchRepository) GetBatchByID(ctx context.Context, id int) (batch.Batch, error) {
	var b batch.Batch
	query := `SELECT ` + batchColumns + ` FROM batch WHERE id = $1`
	if err := repo.db.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return batch.Batch{}, batch.ErrNotFound
		}
		return batch.Batch{}, errors.Wrap(err, "getting batch")
	}
	return b, nil
}

func (repo *BatchRepository) FilterBatches(ctx context.Context, filter batch.QueryFilter) ([]batch.Batch, error) {
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
	if filter.CourseID != 0 {
		conds = append(conds, "course_id = "+arg(filter.CourseID))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if filter.Search != "" {
		conds = append(conds, "name ILIKE "+arg("%"+filter.Search+"%"))
	}

	query := `SELECT ` + batchColumns + ` FROM batch`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	batches := make([]batch.Batch, 0)
	if err := repo.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering batches")
	}
	return batches, nil
}

// UpsertAttendance writes one row per (student, batch, date); re-marking the
// same day overwrites status and marker instead of inserting a duplicate.
func (repo *BatchRepository) UpsertAttendance(ctx context.Context, att batch.Attendance) (batch.Attendance, error) {
	query := `
INSERT INTO attendance (id, student_id, batch_id, date, status, marked_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, batch_id, date)
    DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		att.ID, att.StudentID, att.BatchID, att.Date, att.Status, att.MarkedBy,
		att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID, &att.CreatedAt)
	if err != nil {
		return batch.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return att, nil
}

func (repo *BatchRepository) CountAttendance(ctx context.Context, batchID int, date time.Time) (batch.AttendanceCounts, error) {
	var counts batch.AttendanceCounts
	query := `
SELECT COUNT(*) FILTER (WHERE status = 'present') AS present,
       COUNT(*) FILTER (WHERE status = 'absent')  AS absent,
       COUNT(*) FILTER (WHERE status = 'late')    AS late
FROM attendance
WHERE batch_id = $1
  AND date = $2`
	err := repo.db.QueryRowContext(ctx, query, batchID, date).Scan(&counts.Present, &counts.Absent, &counts.Late)
	if err != nil {
		return batch.AttendanceCounts{}, errors.Wrap(err, "counting attendance")
	}
	return counts, nil
}

func (repo *BatchRepository) ListAttendance(ctx context.Context, batchID int, date time.Time) ([]batch.Attendance, error) {
	query := `
SELECT id, student_id, batch_id, date, status, marked_by, created_at, updated_at
FROM attendance
WHERE batch_id = $1
  AND date = $2
ORDER BY student_id`
	records := make([]batch.Attendance, 0)
	if err := repo.db.SelectContext(ctx, &records, query, batchID, date); err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}
	return records, nil
}

// BatchCapacity satisfies student.CapacityChecker for the enrollment guard.
func (repo *BatchRepository) BatchCapacity(ctx context.Context, batchID int) (int, int, error) {
	var res struct {
		MaxStudents int `db:"max_students"`
		Enrolled    int `db:"enrolled"`
	}
	query := `
SELECT b.max_students,
       (SELECT COUNT(*) FROM student s WHERE s.batch_id = b.id AND s.is_active) AS enrolled
FROM batch b
WHERE b.id = $1`
	if err := repo.db.GetContext(ctx, &res, query, batchID); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, batch.ErrNotFound
		}
		return 0, 0, errors.Wrap(err, "getting batch capacity")
	}
	return res.MaxStudents, res.Enrolled, nil
}
