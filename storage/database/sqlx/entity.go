package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

type entityRepository struct {
	exec core.DBExecutor
}

var _ roster.Repository = (*entityRepository)(nil) // interface compliance check

func NewEntityRepository(exec core.DBExecutor) *entityRepository {
	return &entityRepository{exec: exec}
}

func (repo entityRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// entityRow maps both the student and the teacher tables; the column each
// table lacks (subject or birthdate) simply stays at its zero value.
type entityRow struct {
	ID            int         `db:"id"`
	Name          null.String `db:"name"`
	ClassKey      null.String `db:"class_key"`
	Subject       null.String `db:"subject"`
	Contact       null.String `db:"contact"`
	Avatar        null.String `db:"avatar"`
	Birthdate     null.String `db:"birthdate"`
	Rate          int         `db:"rate"`
	CurrentStatus null.String `db:"current_status"`
	TotalClasses  int         `db:"total_classes"`
	PresentCount  int         `db:"present_count"`
	AbsentCount   int         `db:"absent_count"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

func (repo entityRepository) fromRow(kind roster.Kind, row entityRow) roster.Entity {
	return roster.Entity{
		ID:             row.ID,
		Kind:           kind,
		Name:           row.Name.String,
		ClassKey:       row.ClassKey.String,
		Subject:        row.Subject.String,
		Contact:        row.Contact.String,
		AvatarInitials: row.Avatar.String,
		Birthdate:      row.Birthdate.String,
		Rate:           row.Rate,
		CurrentStatus:  roster.Status(row.CurrentStatus.String),
		TotalClasses:   row.TotalClasses,
		PresentCount:   row.PresentCount,
		AbsentCount:    row.AbsentCount,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

func kindTable(kind roster.Kind) string {
	if kind == roster.KindTeacher {
		return "teacher"
	}
	return "student"
}

// kindCols returns the SELECT column list for the kind's table.
func kindCols(kind roster.Kind) string {
	extra := "birthdate"
	if kind == roster.KindTeacher {
		extra = "subject"
	}
	return "id, name, class_key, contact, avatar, " + extra +
		", rate, current_status, total_classes, present_count, absent_count, created_at, updated_at"
}

func (repo entityRepository) scanEntities(kind roster.Kind, rows *sql.Rows) ([]roster.Entity, error) {
	var dest []entityRow
	if err := sqlx.StructScan(rows, &dest); err != nil {
		return nil, errors.Wrap(err, "scanning entities")
	}
	entities := make([]roster.Entity, 0, len(dest))
	for _, row := range dest {
		entities = append(entities, repo.fromRow(kind, row))
	}
	return entities, nil
}

func (repo entityRepository) CreateEntity(ctx context.Context, e roster.Entity, exec ...core.DBExecutor) (roster.Entity, error) {
	var q string
	args := []interface{}{
		e.Name, e.ClassKey, e.Contact, e.AvatarInitials,
		e.Rate, string(e.CurrentStatus), e.TotalClasses, e.PresentCount, e.AbsentCount,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	}
	if e.Kind == roster.KindTeacher {
		q = `INSERT INTO teacher (name, class_key, contact, avatar, rate, current_status, total_classes, present_count, absent_count, created_at, updated_at, subject)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
		args = append(args, e.Subject)
	} else {
		q = `INSERT INTO student (name, class_key, contact, avatar, rate, current_status, total_classes, present_count, absent_count, created_at, updated_at, birthdate)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
		args = append(args, e.Birthdate)
	}
	if err := repo.getExec(exec).QueryRowContext(ctx, q, args...).Scan(&e.ID); err != nil {
		return roster.Entity{}, errors.Wrap(err, "inserting entity")
	}
	return e, nil
}

func (repo entityRepository) QueryEntities(ctx context.Context, kind roster.Kind, filter *roster.QueryFilter, exec ...core.DBExecutor) ([]roster.Entity, error) {
	q := fmt.Sprintf("SELECT %s FROM %s", kindCols(kind), kindTable(kind))
	var args []interface{}
	if filter != nil && filter.ClassKey != "" {
		q += " WHERE class_key = $1"
		args = append(args, filter.ClassKey)
	}
	q += " ORDER BY id"

	rows, err := repo.getExec(exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying entities")
	}
	defer func() { _ = rows.Close() }()
	return repo.scanEntities(kind, rows)
}

func (repo entityRepository) GetEntityByID(ctx context.Context, kind roster.Kind, id int, exec ...core.DBExecutor) (roster.Entity, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", kindCols(kind), kindTable(kind))
	rows, err := repo.getExec(exec).QueryContext(ctx, q, id)
	if err != nil {
		return roster.Entity{}, errors.Wrap(err, "finding entity")
	}
	defer func() { _ = rows.Close() }()

	entities, err := repo.scanEntities(kind, rows)
	if err != nil {
		return roster.Entity{}, err
	}
	if len(entities) == 0 {
		return roster.Entity{}, roster.ErrNotFound
	}
	return entities[0], nil
}

func (repo entityRepository) UpdateEntity(ctx context.Context, e roster.Entity, exec ...core.DBExecutor) (roster.Entity, error) {
	var q string
	args := []interface{}{e.Name, e.ClassKey, e.Contact, e.AvatarInitials, e.UpdatedAt.UTC()}
	if e.Kind == roster.KindTeacher {
		q = `UPDATE teacher SET name = $1, class_key = $2, contact = $3, avatar = $4, updated_at = $5, subject = $6 WHERE id = $7`
		args = append(args, e.Subject, e.ID)
	} else {
		q = `UPDATE student SET name = $1, class_key = $2, contact = $3, avatar = $4, updated_at = $5, birthdate = $6 WHERE id = $7`
		args = append(args, e.Birthdate, e.ID)
	}

	res, err := repo.getExec(exec).ExecContext(ctx, q, args...)
	if err != nil {
		return roster.Entity{}, errors.Wrap(err, "updating entity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Entity{}, roster.ErrNotFound
	}
	return e, nil
}

func (repo entityRepository) UpdateEntityStats(ctx context.Context, e roster.Entity, exec ...core.DBExecutor) error {
	q := fmt.Sprintf(
		`UPDATE %s SET rate = $1, current_status = $2, total_classes = $3, present_count = $4, absent_count = $5, updated_at = $6 WHERE id = $7`,
		kindTable(e.Kind))
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		e.Rate, string(e.CurrentStatus), e.TotalClasses, e.PresentCount, e.AbsentCount, e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return errors.Wrap(err, "updating entity stats")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrNotFound
	}
	return nil
}

func (repo entityRepository) DeleteEntity(ctx context.Context, kind roster.Kind, id int, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := fmt.Sprintf("DELETE FROM %s WHERE id = $1", kindTable(kind))
	if _, err := exe.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting entity")
	}
	// past attendance_log rows are kept; log queries join the entity table,
	// so a deleted entity's rows simply stop appearing
	if _, err := exe.ExecContext(ctx, "DELETE FROM working_mark WHERE kind = $1 AND entity_id = $2", string(kind), id); err != nil {
		return errors.Wrap(err, "deleting entity working mark")
	}
	return nil
}
