package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type markRow struct {
	Kind     null.String `db:"kind"`
	EntityID int         `db:"entity_id"`
	Day      null.String `db:"day"`
	Status   null.String `db:"status"`
}

type summaryRow struct {
	Day          null.String `db:"day"`
	PresentCount int         `db:"present_count"`
	AbsentCount  int         `db:"absent_count"`
	LateCount    int         `db:"late_count"`
}

type logRecordRow struct {
	Day      null.String `db:"day"`
	Status   null.String `db:"status"`
	EntityID int         `db:"entity_id"`
	Name     null.String `db:"name"`
	ClassKey null.String `db:"class_key"`
	Subject  null.String `db:"subject"`
}

func (repo attendanceRepository) GetWorkingMarks(ctx context.Context, kind roster.Kind, day string, exec ...core.DBExecutor) ([]attendance.WorkingMark, error) {
	rows, err := repo.getExec(exec).QueryContext(ctx,
		"SELECT kind, entity_id, day, status FROM working_mark WHERE kind = $1 AND day = $2", string(kind), day)
	if err != nil {
		return nil, errors.Wrap(err, "querying working marks")
	}
	defer func() { _ = rows.Close() }()

	var dest []markRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning working marks")
	}
	marks := make([]attendance.WorkingMark, 0, len(dest))
	for _, row := range dest {
		marks = append(marks, attendance.WorkingMark{
			Kind:     roster.Kind(row.Kind.String),
			EntityID: row.EntityID,
			Day:      row.Day.String,
			Status:   roster.Status(row.Status.String),
		})
	}
	return marks, nil
}

func (repo attendanceRepository) SetWorkingMark(ctx context.Context, mark attendance.WorkingMark, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO working_mark (kind, entity_id, day, status) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, entity_id, day) DO UPDATE SET status = EXCLUDED.status`,
		string(mark.Kind), mark.EntityID, mark.Day, string(mark.Status))
	return errors.Wrap(err, "setting working mark")
}

func (repo attendanceRepository) DeleteWorkingMarks(ctx context.Context, kind roster.Kind, day string, entityIDs []int, exec ...core.DBExecutor) error {
	if len(entityIDs) == 0 {
		return nil
	}
	ids := make(pq.Int64Array, 0, len(entityIDs))
	for _, id := range entityIDs {
		ids = append(ids, int64(id))
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		"DELETE FROM working_mark WHERE kind = $1 AND day = $2 AND entity_id = ANY($3)",
		string(kind), day, ids)
	return errors.Wrap(err, "deleting working marks")
}

func (repo attendanceRepository) UpsertDaySummary(ctx context.Context, summary attendance.DaySummary, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO day_summary (day, present_count, absent_count, late_count) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (day) DO UPDATE SET
			present_count = EXCLUDED.present_count,
			absent_count = EXCLUDED.absent_count,
			late_count = EXCLUDED.late_count`,
		summary.Day, summary.PresentCount, summary.AbsentCount, summary.LateCount)
	return errors.Wrap(err, "upserting day summary")
}

func (repo attendanceRepository) GetDaySummary(ctx context.Context, day string, exec ...core.DBExecutor) (attendance.DaySummary, error) {
	row := repo.getExec(exec).QueryRowContext(ctx,
		"SELECT day, present_count, absent_count, late_count FROM day_summary WHERE day = $1", day)

	var dest summaryRow
	if err := row.Scan(&dest.Day, &dest.PresentCount, &dest.AbsentCount, &dest.LateCount); err != nil {
		if err == sql.ErrNoRows {
			return attendance.DaySummary{}, attendance.ErrNoSummary
		}
		return attendance.DaySummary{}, errors.Wrap(err, "finding day summary")
	}
	return attendance.DaySummary{
		Day:          dest.Day.String,
		PresentCount: dest.PresentCount,
		AbsentCount:  dest.AbsentCount,
		LateCount:    dest.LateCount,
	}, nil
}

func (repo attendanceRepository) QueryDaySummaries(ctx context.Context, limit int, exec ...core.DBExecutor) ([]attendance.DaySummary, error) {
	q := "SELECT day, present_count, absent_count, late_count FROM day_summary ORDER BY day DESC"
	var args []interface{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying day summaries")
	}
	defer func() { _ = rows.Close() }()

	var dest []summaryRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning day summaries")
	}
	summaries := make([]attendance.DaySummary, 0, len(dest))
	for _, row := range dest {
		summaries = append(summaries, attendance.DaySummary{
			Day:          row.Day.String,
			PresentCount: row.PresentCount,
			AbsentCount:  row.AbsentCount,
			LateCount:    row.LateCount,
		})
	}
	return summaries, nil
}

func (repo attendanceRepository) UpsertLogEntries(ctx context.Context, entries []attendance.LogEntry, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	for _, entry := range entries {
		_, err := exe.ExecContext(ctx,
			`INSERT INTO attendance_log (kind, entity_id, day, status) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (kind, entity_id, day) DO UPDATE SET status = EXCLUDED.status`,
			string(entry.Kind), entry.EntityID, entry.Day, string(entry.Status))
		if err != nil {
			return errors.Wrap(err, "upserting log entry")
		}
	}
	return nil
}

func (repo attendanceRepository) FilterLog(ctx context.Context, filter attendance.LogFilter, exec ...core.DBExecutor) ([]attendance.LogRecord, error) {
	kind := filter.Kind
	if !kind.Valid() {
		kind = roster.KindStudent
	}
	subjectCol := "''"
	if kind == roster.KindTeacher {
		subjectCol = "e.subject"
	}

	q := fmt.Sprintf(
		`SELECT l.day, l.status, l.entity_id, e.name, e.class_key, %s AS subject
		 FROM attendance_log l JOIN %s e ON e.id = l.entity_id
		 WHERE l.kind = $1`, subjectCol, kindTable(kind))
	args := []interface{}{string(kind)}
	if filter.Day != "" {
		args = append(args, filter.Day)
		q += fmt.Sprintf(" AND l.day = $%d", len(args))
	}
	if filter.ClassKey != "" {
		args = append(args, filter.ClassKey)
		q += fmt.Sprintf(" AND e.class_key = $%d", len(args))
	}
	if filter.EntityID != 0 {
		args = append(args, filter.EntityID)
		q += fmt.Sprintf(" AND l.entity_id = $%d", len(args))
	}
	q += " ORDER BY l.day DESC, e.class_key, e.name"

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance log")
	}
	defer func() { _ = rows.Close() }()

	var dest []logRecordRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning attendance log")
	}
	records := make([]attendance.LogRecord, 0, len(dest))
	for _, row := range dest {
		records = append(records, attendance.LogRecord{
			Day:      row.Day.String,
			Status:   roster.Status(row.Status.String),
			EntityID: row.EntityID,
			Name:     row.Name.String,
			ClassKey: row.ClassKey.String,
			Subject:  row.Subject.String,
		})
	}
	return records, nil
}
