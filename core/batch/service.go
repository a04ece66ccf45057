package batch

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("batch not found")

	errBadStatus      = "unknown attendance status"
	errNotInBatch     = "student is not enrolled in this batch"
	errStudentGone    = "student not found"
	errStudentStopped = "student is inactive"
)

type (
	Repository interface {
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		GetBatchByID(ctx context.Context, id int) (Batch, error)
		// FilterBatches applies AND operation on available QueryFilter fields.
		FilterBatches(ctx context.Context, filter QueryFilter) ([]Batch, error)
		// UpsertAttendance inserts the record or, when the (student, batch,
		// date) triple already exists, updates its status in place.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		CountAttendance(ctx context.Context, batchID int, date time.Time) (AttendanceCounts, error)
		ListAttendance(ctx context.Context, batchID int, date time.Time) ([]Attendance, error)
	}

	Service struct {
		repo     Repository
		students student.Repository
	}
)

func NewService(repo Repository, students student.Repository) *Service {
	return &Service{repo: repo, students: students}
}

func (svc *Service) Create(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := core.Validate.Struct(nb); err != nil {
		return Batch{}, err
	}

	now := time.Now().UTC()
	b := Batch{
		Name:        core.CleanString(nb.Name),
		CourseID:    nb.CourseID,
		BranchID:    nb.BranchID,
		FacultyID:   nb.FacultyID,
		MaxStudents: nb.MaxStudents,
		StartDate:   nb.StartDate,
		EndDate:     nb.EndDate,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateBatch(ctx, b)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Batch, error) {
	return svc.repo.GetBatchByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Batch, error) {
	return svc.repo.FilterBatches(ctx, filter)
}

// Mark records attendance for one student on one date, updating the existing
// record when the day was already marked.
func (svc *Service) Mark(ctx context.Context, batchID int, ma MarkAttendance) (Attendance, error) {
	if err := core.Validate.Struct(ma); err != nil {
		return Attendance{}, err
	}
	if !ma.Status.Valid() {
		return Attendance{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: errBadStatus})
	}

	if _, err := svc.repo.GetBatchByID(ctx, batchID); err != nil {
		return Attendance{}, err
	}
	std, err := svc.students.GetStudentByID(ctx, ma.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Attendance{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: errStudentGone})
		}
		return Attendance{}, errors.Wrap(err, "finding student")
	}
	if !std.IsActive {
		return Attendance{}, core.NewValidationError(student.ErrInactive, core.FieldError{Field: "student_id", Error: errStudentStopped})
	}
	if std.BatchID != batchID {
		return Attendance{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errNotInBatch})
	}

	now := time.Now().UTC()
	att := Attendance{
		ID:        uuid.New().String(),
		StudentID: ma.StudentID,
		BatchID:   batchID,
		Date:      DateOnly(ma.Date),
		Status:    ma.Status,
		MarkedBy:  ma.MarkedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.UpsertAttendance(ctx, att)
}

func (svc *Service) Attendance(ctx context.Context, batchID int, date time.Time) ([]Attendance, error) {
	return svc.repo.ListAttendance(ctx, batchID, DateOnly(date))
}

// AttendanceRate returns the percentage of present students for the batch and
// date, rounded to 1 decimal. A day with no records yields 0, not an error.
func (svc *Service) AttendanceRate(ctx context.Context, batchID int, date time.Time) (float64, error) {
	counts, err := svc.repo.CountAttendance(ctx, batchID, DateOnly(date))
	if err != nil {
		return 0, err
	}
	if counts.Total() == 0 {
		return 0, nil
	}
	rate := float64(counts.Present) / float64(counts.Total()) * 100
	return math.Round(rate*10) / 10, nil
}

// Income returns the batch's billed income: the sum of its students' final
// fees regardless of what has actually been collected so far.
func (svc *Service) Income(ctx context.Context, batchID int) (decimal.Decimal, error) {
	students, err := svc.batchStudents(ctx, batchID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, std := range students {
		total = total.Add(std.FinalFee)
	}
	return total, nil
}

// PendingDues returns the sum of outstanding due amounts across the batch.
func (svc *Service) PendingDues(ctx context.Context, batchID int) (decimal.Decimal, error) {
	students, err := svc.batchStudents(ctx, batchID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, std := range students {
		total = total.Add(std.DueAmount)
	}
	return total, nil
}

// Stats assembles the batch rollup for one date.
func (svc *Service) Stats(ctx context.Context, batchID int, date time.Time) (Stats, error) {
	students, err := svc.batchStudents(ctx, batchID)
	if err != nil {
		return Stats{}, err
	}
	rate, err := svc.AttendanceRate(ctx, batchID, date)
	if err != nil {
		return Stats{}, err
	}

	income, collected, dues := decimal.Zero, decimal.Zero, decimal.Zero
	for _, std := range students {
		income = income.Add(std.FinalFee)
		collected = collected.Add(std.PaidAmount)
		dues = dues.Add(std.DueAmount)
	}

	return Stats{
		BatchID:         batchID,
		TotalStudents:   len(students),
		AttendanceRate:  rate,
		TotalIncome:     income,
		CollectedAmount: collected,
		PendingDues:     dues,
		Date:            DateOnly(date).Format("2006-01-02"),
	}, nil
}

func (svc *Service) batchStudents(ctx context.Context, batchID int) ([]student.Student, error) {
	if _, err := svc.repo.GetBatchByID(ctx, batchID); err != nil {
		return nil, err
	}
	return svc.students.FilterStudents(ctx, student.QueryFilter{BatchID: batchID})
}

// DateOnly truncates ts to UTC midnight; attendance is keyed by calendar day.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
