// Package inmemdb provides mutex-guarded in-memory repositories. It backs the
// test suites and local development without a running postgres.
package inmemdb

import (
	"sync"

	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/student"
	"github.com/edvantage/academy/core/user"
)

type DB struct {
	mu sync.RWMutex

	students   map[int]*student.Student
	payments   map[string]*payment.Payment
	batches    map[int]*batch.Batch
	attendance map[string]*batch.Attendance // keyed by (batch, student, date)
	branches   map[int]*branch.Branch
	income     map[string]*branch.Entry
	expenses   map[string]*branch.Entry
	users      map[string]*user.User

	studentSeq int
	batchSeq   int
	branchSeq  int
}

func Open() (*DB, error) {
	return &DB{
		students:   make(map[int]*student.Student),
		payments:   make(map[string]*payment.Payment),
		batches:    make(map[int]*batch.Batch),
		attendance: make(map[string]*batch.Attendance),
		branches:   make(map[int]*branch.Branch),
		income:     make(map[string]*branch.Entry),
		expenses:   make(map[string]*branch.Entry),
		users:      make(map[string]*user.User),
	}, nil
}
