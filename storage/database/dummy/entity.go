package dummydb

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

type entityRepository struct {
	db  *entityTable
	att *attendanceTable
}

var _ roster.Repository = (*entityRepository)(nil) // interface compliance check

func NewEntityRepository(db *DB) roster.Repository {
	return &entityRepository{db: db.entity, att: db.attendance}
}

func (repo *entityRepository) CreateEntity(_ context.Context, e roster.Entity, _ ...core.DBExecutor) (roster.Entity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	e.ID = repo.db.pkCount
	repo.db.table[e.Kind][e.ID] = &e
	repo.db.order[e.Kind] = append(repo.db.order[e.Kind], e.ID)
	return e, nil
}

func (repo *entityRepository) QueryEntities(_ context.Context, kind roster.Kind, filter *roster.QueryFilter, _ ...core.DBExecutor) ([]roster.Entity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entities := make([]roster.Entity, 0, len(repo.db.order[kind]))
	for _, id := range repo.db.order[kind] {
		ent := repo.db.table[kind][id]
		if ent == nil {
			continue
		}
		if filter != nil && filter.ClassKey != "" && ent.ClassKey != filter.ClassKey {
			continue
		}
		entities = append(entities, *ent)
	}
	return entities, nil
}

func (repo *entityRepository) GetEntityByID(_ context.Context, kind roster.Kind, id int, _ ...core.DBExecutor) (roster.Entity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ent, ok := repo.db.table[kind][id]; ok {
		return *ent, nil
	}
	return roster.Entity{}, roster.ErrNotFound
}

func (repo *entityRepository) UpdateEntity(_ context.Context, e roster.Entity, _ ...core.DBExecutor) (roster.Entity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ent, ok := repo.db.table[e.Kind][e.ID]
	if !ok {
		return roster.Entity{}, roster.ErrNotFound
	}
	ent.Name = e.Name
	ent.ClassKey = e.ClassKey
	ent.Subject = e.Subject
	ent.Contact = e.Contact
	ent.AvatarInitials = e.AvatarInitials
	ent.Birthdate = e.Birthdate
	ent.UpdatedAt = e.UpdatedAt
	return *ent, nil
}

func (repo *entityRepository) UpdateEntityStats(_ context.Context, e roster.Entity, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	ent, ok := repo.db.table[e.Kind][e.ID]
	if !ok {
		return roster.ErrNotFound
	}
	ent.Rate = e.Rate
	ent.CurrentStatus = e.CurrentStatus
	ent.TotalClasses = e.TotalClasses
	ent.PresentCount = e.PresentCount
	ent.AbsentCount = e.AbsentCount
	ent.UpdatedAt = e.UpdatedAt
	return nil
}

func (repo *entityRepository) DeleteEntity(_ context.Context, kind roster.Kind, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table[kind], id)
	for i, oid := range repo.db.order[kind] {
		if oid == id {
			repo.db.order[kind] = append(repo.db.order[kind][:i], repo.db.order[kind][i+1:]...)
			break
		}
	}

	// cascade: working mark only; past log entries are kept and drop out of
	// queries through the entity join
	repo.att.Lock()
	for key, m := range repo.att.marks {
		if m.Kind == kind && m.EntityID == id {
			delete(repo.att.marks, key)
		}
	}
	repo.att.Unlock()
	return nil
}
