package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edvantage/academy/core/batch"
)

type BatchRepository struct {
	db *DB
}

func NewBatchRepository(db *DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func attendanceKey(batchID, studentID int, date time.Time) string {
	return fmt.Sprintf("%d|%d|%s", batchID, studentID, date.Format("2006-01-02"))
}

func (repo *BatchRepository) CreateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.batchSeq++
	b.ID = repo.db.batchSeq
	repo.db.batches[b.ID] = &b
	return b, nil
}

func (repo *BatchRepository) GetBatchByID(_ context.Context, id int) (batch.Batch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return *b, nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *BatchRepository) FilterBatches(_ context.Context, filter batch.QueryFilter) ([]batch.Batch, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := make([]batch.Batch, 0)
	for _, b := range repo.db.batches {
		if filter.BranchID != 0 && b.BranchID != filter.BranchID {
			continue
		}
		if filter.CourseID != 0 && b.CourseID != filter.CourseID {
			continue
		}
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (repo *BatchRepository) UpsertAttendance(_ context.Context, att batch.Attendance) (batch.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := attendanceKey(att.BatchID, att.StudentID, att.Date)
	if existing, ok := repo.db.attendance[key]; ok {
		existing.Status = att.Status
		existing.MarkedBy = att.MarkedBy
		existing.UpdatedAt = time.Now().UTC()
		return *existing, nil
	}
	repo.db.attendance[key] = &att
	return att, nil
}

func (repo *BatchRepository) CountAttendance(_ context.Context, batchID int, date time.Time) (batch.AttendanceCounts, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var counts batch.AttendanceCounts
	for _, att := range repo.db.attendance {
		if att.BatchID != batchID || !att.Date.Equal(date) {
			continue
		}
		switch att.Status {
		case batch.AttendancePresent:
			counts.Present++
		case batch.AttendanceAbsent:
			counts.Absent++
		case batch.AttendanceLate:
			counts.Late++
		}
	}
	return counts, nil
}

func (repo *BatchRepository) ListAttendance(_ context.Context, batchID int, date time.Time) ([]batch.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := make([]batch.Attendance, 0)
	for _, att := range repo.db.attendance {
		if att.BatchID == batchID && att.Date.Equal(date) {
			matched = append(matched, *att)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StudentID < matched[j].StudentID })
	return matched, nil
}

// BatchCapacity satisfies student.CapacityChecker for the enrollment guard.
func (repo *BatchRepository) BatchCapacity(_ context.Context, batchID int) (int, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	b, ok := repo.db.batches[batchID]
	if !ok {
		return 0, 0, batch.ErrNotFound
	}
	var enrolled int
	for _, std := range repo.db.students {
		if std.BatchID == batchID && std.IsActive {
			enrolled++
		}
	}
	return b.MaxStudents, enrolled, nil
}
