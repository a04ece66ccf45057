package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/edvantage/academy/core/student"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.studentSeq++
	std.ID = repo.db.studentSeq
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := make([]student.Student, 0)
	for _, std := range repo.query() {
		if filter.BranchID != 0 && std.BranchID != filter.BranchID {
			continue
		}
		if filter.BatchID != 0 && std.BatchID != filter.BatchID {
			continue
		}
		if filter.CourseID != 0 && std.CourseID != filter.CourseID {
			continue
		}
		if filter.PaymentStatus != "" && std.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.IsActive != nil && std.IsActive != *filter.IsActive {
			continue
		}
		if filter.WithDues && !std.DueAmount.IsPositive() {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(std.Name), needle) &&
				!strings.Contains(strings.ToLower(std.Email), needle) {
				continue
			}
		}
		matched = append(matched, std)
	}
	return matched, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.UpdatedAt = time.Now().UTC()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeactivateStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	now := time.Now().UTC()
	std.IsActive = false
	std.DeactivatedAt = null.TimeFrom(now)
	std.UpdatedAt = now
	return *std, nil
}
