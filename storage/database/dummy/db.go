// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/account"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type (
	DB struct {
		entity     *entityTable
		attendance *attendanceTable
		account    *accountTable
	}

	entityTable struct {
		sync.RWMutex
		table   map[roster.Kind]map[int]*roster.Entity
		order   map[roster.Kind][]int // insertion order
		pkCount int
	}

	attendanceTable struct {
		sync.RWMutex
		marks     map[string]*attendance.WorkingMark // kind|id|day
		log       map[string]*attendance.LogEntry    // kind|id|day
		summaries map[string]*attendance.DaySummary  // day

		markWriteErr error // injected write-through failure
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
		order []string // insertion order
	}
)

var _ core.DB = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		entity: &entityTable{
			table: map[roster.Kind]map[int]*roster.Entity{
				roster.KindStudent: make(map[int]*roster.Entity),
				roster.KindTeacher: make(map[int]*roster.Entity),
			},
			order: make(map[roster.Kind][]int),
		},
		attendance: &attendanceTable{
			marks:     make(map[string]*attendance.WorkingMark),
			log:       make(map[string]*attendance.LogEntry),
			summaries: make(map[string]*attendance.DaySummary),
		},
		account: &accountTable{table: make(map[string]*account.Account)},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.entity.Lock()
	db.entity.table = map[roster.Kind]map[int]*roster.Entity{
		roster.KindStudent: make(map[int]*roster.Entity),
		roster.KindTeacher: make(map[int]*roster.Entity),
	}
	db.entity.order = make(map[roster.Kind][]int)
	db.entity.Unlock()

	db.attendance.Lock()
	db.attendance.marks = make(map[string]*attendance.WorkingMark)
	db.attendance.log = make(map[string]*attendance.LogEntry)
	db.attendance.summaries = make(map[string]*attendance.DaySummary)
	db.attendance.markWriteErr = nil
	db.attendance.Unlock()

	db.account.Lock()
	db.account.table = make(map[string]*account.Account)
	db.account.order = nil
	db.account.Unlock()
}

// FailWorkingMarkWrites injects err into subsequent SetWorkingMark calls;
// nil restores normal behavior.
func (db *DB) FailWorkingMarkWrites(err error) {
	db.attendance.Lock()
	db.attendance.markWriteErr = err
	db.attendance.Unlock()
}

// core.DB implementation; the repositories ignore executors, transactions are
// a formality here.

type dummyTx struct {
	noopExecutor
}

func (dummyTx) Commit() error   { return nil }
func (dummyTx) Rollback() error { return nil }

func (db *DB) Begin() (core.DBTransactor, error) { return dummyTx{}, nil }
func (db *DB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return dummyTx{}, nil
}

type noopExecutor struct{}

func (noopExecutor) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (noopExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (noopExecutor) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }
func (noopExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (noopExecutor) QueryRow(string, ...interface{}) *sql.Row                          { return nil }
func (noopExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func (db *DB) Exec(q string, args ...interface{}) (sql.Result, error) {
	return noopExecutor{}.Exec(q, args...)
}
func (db *DB) ExecContext(ctx context.Context, q string, args ...interface{}) (sql.Result, error) {
	return noopExecutor{}.ExecContext(ctx, q, args...)
}
func (db *DB) Query(q string, args ...interface{}) (*sql.Rows, error) {
	return noopExecutor{}.Query(q, args...)
}
func (db *DB) QueryContext(ctx context.Context, q string, args ...interface{}) (*sql.Rows, error) {
	return noopExecutor{}.QueryContext(ctx, q, args...)
}
func (db *DB) QueryRow(q string, args ...interface{}) *sql.Row {
	return noopExecutor{}.QueryRow(q, args...)
}
func (db *DB) QueryRowContext(ctx context.Context, q string, args ...interface{}) *sql.Row {
	return noopExecutor{}.QueryRowContext(ctx, q, args...)
}
