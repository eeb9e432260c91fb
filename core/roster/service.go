package roster

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound = errors.New("entity not found")
)

type (
	Repository interface {
		CreateEntity(ctx context.Context, e Entity, exec ...core.DBExecutor) (Entity, error)
		// QueryEntities applies AND operation on available QueryFilter fields,
		// in the directory's natural (insertion) order.
		QueryEntities(ctx context.Context, kind Kind, filter *QueryFilter, exec ...core.DBExecutor) ([]Entity, error)
		GetEntityByID(ctx context.Context, kind Kind, id int, exec ...core.DBExecutor) (Entity, error)
		// UpdateEntity persists identity fields only.
		UpdateEntity(ctx context.Context, e Entity, exec ...core.DBExecutor) (Entity, error)
		// UpdateEntityStats persists counters, rate and current status.
		// Reserved for the attendance reconciliation engine.
		UpdateEntityStats(ctx context.Context, e Entity, exec ...core.DBExecutor) error
		// DeleteEntity removes the entity along with its working mark and its
		// attendance log entries.
		DeleteEntity(ctx context.Context, kind Kind, id int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, scope core.Scope, kind Kind, ne NewEntity) (Entity, error) {
	if kind == KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return Entity{}, err
		}
	}
	if err := scope.CheckClass(ne.ClassKey); err != nil {
		return Entity{}, err
	}

	now := time.Now().UTC()
	ent := Entity{
		Kind:           kind,
		Name:           ne.Name,
		ClassKey:       ne.ClassKey,
		Subject:        ne.Subject,
		Contact:        ne.Contact,
		AvatarInitials: AvatarInitials(ne.Name),
		Birthdate:      ne.Birthdate,
		Rate:           100,
		CurrentStatus:  StatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateEntity(ctx, ent)
}

// Query returns entities of the given kind. The requested class filter is
// resolved through the scope: a teacher always gets their assigned class.
func (svc *Service) Query(ctx context.Context, scope core.Scope, kind Kind, classKey string) ([]Entity, error) {
	if kind == KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return nil, err
		}
	}

	var filter *QueryFilter
	if effective := scope.ClassFilter(classKey); effective != "" {
		filter = &QueryFilter{ClassKey: effective}
	}
	return svc.repo.QueryEntities(ctx, kind, filter)
}

func (svc *Service) GetByID(ctx context.Context, scope core.Scope, kind Kind, id int) (Entity, error) {
	if kind == KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return Entity{}, err
		}
	}

	ent, err := svc.repo.GetEntityByID(ctx, kind, id)
	if err != nil {
		return Entity{}, err
	}
	if err = scope.CheckClass(ent.ClassKey); err != nil {
		return Entity{}, err
	}
	return ent, nil
}

func (svc *Service) Update(ctx context.Context, scope core.Scope, kind Kind, id int, ue UpdateEntity) (Entity, error) {
	ent, err := svc.GetByID(ctx, scope, kind, id)
	if err != nil {
		return Entity{}, err
	}
	// moving an entity out of scope is as forbidden as reaching into it
	if err = scope.CheckClass(ue.ClassKey); err != nil {
		return Entity{}, err
	}

	ent.Name = ue.Name
	ent.ClassKey = ue.ClassKey
	ent.Subject = ue.Subject
	ent.Contact = ue.Contact
	ent.Birthdate = ue.Birthdate
	ent.AvatarInitials = AvatarInitials(ue.Name)
	ent.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEntity(ctx, ent)
}

func (svc *Service) Delete(ctx context.Context, scope core.Scope, kind Kind, id int) error {
	if _, err := svc.GetByID(ctx, scope, kind, id); err != nil {
		return err
	}
	return svc.repo.DeleteEntity(ctx, kind, id)
}
