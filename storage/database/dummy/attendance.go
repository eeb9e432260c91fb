package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type attendanceRepository struct {
	db       *attendanceTable
	entities *entityTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance, entities: db.entity}
}

func markKey(kind roster.Kind, entityID int, day string) string {
	return fmt.Sprintf("%s|%d|%s", kind, entityID, day)
}

func (repo *attendanceRepository) GetWorkingMarks(_ context.Context, kind roster.Kind, day string, _ ...core.DBExecutor) ([]attendance.WorkingMark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var marks []attendance.WorkingMark
	for _, m := range repo.db.marks {
		if m.Kind == kind && m.Day == day {
			marks = append(marks, *m)
		}
	}
	return marks, nil
}

func (repo *attendanceRepository) SetWorkingMark(_ context.Context, mark attendance.WorkingMark, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.markWriteErr != nil {
		return repo.db.markWriteErr
	}
	repo.db.marks[markKey(mark.Kind, mark.EntityID, mark.Day)] = &mark
	return nil
}

func (repo *attendanceRepository) DeleteWorkingMarks(_ context.Context, kind roster.Kind, day string, entityIDs []int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range entityIDs {
		delete(repo.db.marks, markKey(kind, id, day))
	}
	return nil
}

func (repo *attendanceRepository) UpsertDaySummary(_ context.Context, summary attendance.DaySummary, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.summaries[summary.Day] = &summary
	return nil
}

func (repo *attendanceRepository) GetDaySummary(_ context.Context, day string, _ ...core.DBExecutor) (attendance.DaySummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.summaries[day]; ok {
		return *s, nil
	}
	return attendance.DaySummary{}, attendance.ErrNoSummary
}

func (repo *attendanceRepository) QueryDaySummaries(_ context.Context, limit int, _ ...core.DBExecutor) ([]attendance.DaySummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make([]attendance.DaySummary, 0, len(repo.db.summaries))
	for _, s := range repo.db.summaries {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Day > summaries[j].Day })
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (repo *attendanceRepository) UpsertLogEntries(_ context.Context, entries []attendance.LogEntry, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, entry := range entries {
		e := entry
		repo.db.log[markKey(e.Kind, e.EntityID, e.Day)] = &e
	}
	return nil
}

func (repo *attendanceRepository) FilterLog(_ context.Context, filter attendance.LogFilter, _ ...core.DBExecutor) ([]attendance.LogRecord, error) {
	kind := filter.Kind
	if !kind.Valid() {
		kind = roster.KindStudent
	}

	repo.db.RLock()
	entries := make([]attendance.LogEntry, 0, len(repo.db.log))
	for _, e := range repo.db.log {
		if e.Kind != kind {
			continue
		}
		if filter.Day != "" && e.Day != filter.Day {
			continue
		}
		if filter.EntityID != 0 && e.EntityID != filter.EntityID {
			continue
		}
		entries = append(entries, *e)
	}
	repo.db.RUnlock()

	repo.entities.RLock()
	defer repo.entities.RUnlock()

	records := make([]attendance.LogRecord, 0, len(entries))
	for _, e := range entries {
		ent, ok := repo.entities.table[kind][e.EntityID]
		if !ok {
			continue
		}
		if filter.ClassKey != "" && ent.ClassKey != filter.ClassKey {
			continue
		}
		records = append(records, attendance.LogRecord{
			Day:      e.Day,
			Status:   e.Status,
			EntityID: e.EntityID,
			Name:     ent.Name,
			ClassKey: ent.ClassKey,
			Subject:  ent.Subject,
		})
	}

	// day descending, then class and name
	sort.Slice(records, func(i, j int) bool {
		if records[i].Day != records[j].Day {
			return records[i].Day > records[j].Day
		}
		if records[i].ClassKey != records[j].ClassKey {
			return records[i].ClassKey < records[j].ClassKey
		}
		return records[i].Name < records[j].Name
	})
	return records, nil
}
