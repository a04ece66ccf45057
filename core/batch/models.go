package batch

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	default:
		return false
	}
}

// Batch is a cohort of students enrolled together in one course offering at
// one branch. Its financial and attendance stats are computed on demand,
// never stored.
type Batch struct {
	ID          int         `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	CourseID    int         `db:"course_id" json:"course_id"`
	BranchID    int         `db:"branch_id" json:"branch_id"`
	FacultyID   null.String `db:"faculty_id" json:"faculty_id,omitempty"` // user ref
	MaxStudents int         `db:"max_students" json:"max_students"`
	StartDate   time.Time   `db:"start_date" json:"start_date"`
	EndDate     time.Time   `db:"end_date" json:"end_date"`
	IsActive    bool        `db:"is_active" json:"is_active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"` // UTC
}

// Attendance is one record per (student, batch, date); the triple is unique
// and re-marking the same day updates the row instead of duplicating it.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID int              `db:"student_id" json:"student_id"`
	BatchID   int              `db:"batch_id" json:"batch_id"`
	Date      time.Time        `db:"date" json:"date"` // date only, UTC midnight
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  null.String      `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"` // UTC
}

// AttendanceCounts is the per-status tally for one batch and date.
type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (c AttendanceCounts) Total() int {
	return c.Present + c.Absent + c.Late
}

// NewBatch holds a batch creation request.
type NewBatch struct {
	Name        string      `json:"name" validate:"required"`
	CourseID    int         `json:"course_id" validate:"required"`
	BranchID    int         `json:"branch_id" validate:"required"`
	FacultyID   null.String `json:"faculty_id"`
	MaxStudents int         `json:"max_students" validate:"min=0"`
	StartDate   time.Time   `json:"start_date" validate:"required"`
	EndDate     time.Time   `json:"end_date" validate:"required,gtfield=StartDate"`
}

// MarkAttendance holds an attendance marking request.
type MarkAttendance struct {
	StudentID int              `json:"student_id" validate:"required"`
	Date      time.Time        `json:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	MarkedBy  null.String      `json:"-"`
}

// Stats is the on-demand rollup for one batch.
//
// TotalIncome is the billed amount (sum of final fees), not the collected
// one; CollectedAmount carries the actual collections so the two never get
// conflated downstream.
type Stats struct {
	BatchID         int             `json:"batch_id"`
	TotalStudents   int             `json:"total_students"`
	AttendanceRate  float64         `json:"attendance_rate"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	PendingDues     decimal.Decimal `json:"pending_dues"`
	Date            string          `json:"date"`
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	BranchID int
	CourseID int
	IsActive *bool
	Search   string
}
