package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

var (
	// errors
	ErrNothingMarked = errors.New("no attendance marked for this day")
	ErrNoSummary     = errors.New("no summary recorded for this day")

	errInvalidStatus = errors.New("invalid attendance status")

	// TodayFunc returns the current calendar day; mockable.
	TodayFunc = core.Today
)

type (
	Repository interface {
		// GetWorkingMarks returns the stored (write-through) marks for a day.
		GetWorkingMarks(ctx context.Context, kind roster.Kind, day string, exec ...core.DBExecutor) ([]WorkingMark, error)
		// SetWorkingMark upserts on (kind, entity, day).
		SetWorkingMark(ctx context.Context, mark WorkingMark, exec ...core.DBExecutor) error
		DeleteWorkingMarks(ctx context.Context, kind roster.Kind, day string, entityIDs []int, exec ...core.DBExecutor) error

		// UpsertDaySummary replaces the summary row for its day.
		UpsertDaySummary(ctx context.Context, summary DaySummary, exec ...core.DBExecutor) error
		GetDaySummary(ctx context.Context, day string, exec ...core.DBExecutor) (DaySummary, error)
		// QueryDaySummaries returns summaries by day descending; limit <= 0 means all.
		QueryDaySummaries(ctx context.Context, limit int, exec ...core.DBExecutor) ([]DaySummary, error)

		// UpsertLogEntries upserts on (kind, entity, day); the log never duplicates.
		UpsertLogEntries(ctx context.Context, entries []LogEntry, exec ...core.DBExecutor) error
		// FilterLog applies AND operation on available LogFilter fields, joined
		// with entity identity, by day descending then class and name.
		FilterLog(ctx context.Context, filter LogFilter, exec ...core.DBExecutor) ([]LogRecord, error)
	}

	// Service owns the working ledger and the reconciliation of marks into
	// durable counters, day summaries and the permanent log.
	Service struct {
		db       core.DB
		repo     Repository
		entities roster.Repository
		logger   core.Logger

		mu        sync.RWMutex // guards ledger + ledgerDay
		ledger    map[roster.Kind]map[int]WorkingMark
		ledgerDay string

		saveMu   map[roster.Kind]*sync.Mutex // serializes Save per population
		failures chan MarkFailure
	}
)

func NewService(db core.DB, repo Repository, entities roster.Repository, logger core.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		entities: entities,
		logger:   logger,
		ledger:   newLedger(),
		saveMu: map[roster.Kind]*sync.Mutex{
			roster.KindStudent: {},
			roster.KindTeacher: {},
		},
		failures: make(chan MarkFailure, 64),
	}
}

func newLedger() map[roster.Kind]map[int]WorkingMark {
	return map[roster.Kind]map[int]WorkingMark{
		roster.KindStudent: make(map[int]WorkingMark),
		roster.KindTeacher: make(map[int]WorkingMark),
	}
}

// Failures exposes failed asynchronous mark writes. The app root drains it
// into the logger; a sync/retry layer could subscribe instead.
func (svc *Service) Failures() <-chan MarkFailure {
	return svc.failures
}

// Mark sets the working mark for an entity, overwriting any prior mark today.
// The in-memory working view updates synchronously; the store write-through
// is asynchronous and its failure is only reported on the Failures channel.
func (svc *Service) Mark(ctx context.Context, scope core.Scope, kind roster.Kind, entityID int, status roster.Status) error {
	if kind == roster.KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return err
		}
	}
	if !status.Markable() {
		return core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}

	ent, err := svc.entities.GetEntityByID(ctx, kind, entityID)
	if err != nil {
		return err
	}
	if err = scope.CheckClass(ent.ClassKey); err != nil {
		return err
	}

	mark := WorkingMark{Kind: kind, EntityID: entityID, Day: TodayFunc(), Status: status}

	svc.mu.Lock()
	svc.rollover(mark.Day)
	svc.ledger[kind][entityID] = mark
	svc.mu.Unlock()

	go svc.persistMark(mark)
	return nil
}

// rollover resets the ledger when the calendar day changes.
// Caller must hold mu.
func (svc *Service) rollover(day string) {
	if svc.ledgerDay != day {
		svc.ledger = newLedger()
		svc.ledgerDay = day
	}
}

func (svc *Service) persistMark(mark WorkingMark) {
	if err := svc.repo.SetWorkingMark(context.Background(), mark); err != nil {
		select {
		case svc.failures <- MarkFailure{Mark: mark, Err: err}:
		default:
			svc.logger.Warn("mark failures channel full; dropping", err)
		}
	}
}

// WorkingMarks returns today's working view for a population, scope-filtered:
// the in-memory ledger overlaid on the stored write-through rows (the local
// view wins, it may be ahead of the store).
func (svc *Service) WorkingMarks(ctx context.Context, scope core.Scope, kind roster.Kind) (map[int]roster.Status, error) {
	if kind == roster.KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return nil, err
		}
	}

	marks, err := svc.marksFor(ctx, kind, TodayFunc())
	if err != nil {
		return nil, err
	}

	out := make(map[int]roster.Status, len(marks))
	if scope.Admin {
		for id, m := range marks {
			out[id] = m.Status
		}
		return out, nil
	}

	// teacher view: only entities of the assigned class
	ents, err := svc.entities.QueryEntities(ctx, kind, &roster.QueryFilter{ClassKey: scope.AssignedClass})
	if err != nil {
		return nil, err
	}
	for _, ent := range ents {
		if m, ok := marks[ent.ID]; ok {
			out[ent.ID] = m.Status
		}
	}
	return out, nil
}

func (svc *Service) marksFor(ctx context.Context, kind roster.Kind, day string) (map[int]WorkingMark, error) {
	out := make(map[int]WorkingMark)

	stored, err := svc.repo.GetWorkingMarks(ctx, kind, day)
	if err != nil {
		return nil, errors.Wrap(err, "querying working marks")
	}
	for _, m := range stored {
		// a mark dated another day is never produced; ignore it if encountered
		if m.Day == day && m.Status.Markable() {
			out[m.EntityID] = m
		}
	}

	svc.mu.RLock()
	if svc.ledgerDay == day {
		for id, m := range svc.ledger[kind] {
			out[id] = m
		}
	}
	svc.mu.RUnlock()
	return out, nil
}

// Save commits the working marks of a population for one day: counters and
// rates on every marked entity, the day summary (students only), and the
// permanent log. The whole step is one transaction; marks are cleared on
// success. Saving a day again replaces its records, it never double-writes
// the summary, the log or the counters.
func (svc *Service) Save(ctx context.Context, scope core.Scope, kind roster.Kind, day string) (int, error) {
	if kind == roster.KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return 0, err
		}
	}
	day, err := core.ParseDay(day)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: "date", Error: "must be a valid YYYY-MM-DD day"})
	}

	// at most one save per population at a time in this process; the unique
	// day keys in the store keep concurrent processes from duplicating rows,
	// last save wins on content
	mu := svc.saveMu[kind]
	mu.Lock()
	defer mu.Unlock()

	marks, err := svc.marksFor(ctx, kind, day)
	if err != nil {
		return 0, err
	}

	var filter *roster.QueryFilter
	if cls := scope.ClassFilter(""); cls != "" {
		filter = &roster.QueryFilter{ClassKey: cls}
	}
	ents, err := svc.entities.QueryEntities(ctx, kind, filter)
	if err != nil {
		return 0, errors.Wrap(err, "querying entities")
	}

	type touchedEntity struct {
		ent    roster.Entity
		status roster.Status
	}
	touched := make([]touchedEntity, 0, len(marks))
	for _, ent := range ents {
		if m, ok := marks[ent.ID]; ok {
			touched = append(touched, touchedEntity{ent: ent, status: m.Status})
		}
	}
	if len(touched) == 0 {
		return 0, ErrNothingMarked
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning save transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// a day already saved is replaced, not added onto: undo the logged
	// contribution before applying the new one so counters never drift
	logged, err := svc.repo.FilterLog(ctx, LogFilter{Kind: kind, Day: day}, tx)
	if err != nil {
		return 0, errors.Wrap(err, "querying logged day")
	}
	prevStatus := make(map[int]roster.Status, len(logged))
	for _, rec := range logged {
		prevStatus[rec.EntityID] = rec.Status
	}

	now := time.Now().UTC()
	summary := DaySummary{Day: day}
	entries := make([]LogEntry, 0, len(touched))
	touchedIDs := make([]int, 0, len(touched))

	for _, t := range touched {
		ent := t.ent
		if prev, ok := prevStatus[ent.ID]; ok {
			ent.TotalClasses--
			if prev.CountsPresent() {
				ent.PresentCount--
			} else {
				ent.AbsentCount--
			}
		}
		ent.TotalClasses++
		if t.status.CountsPresent() {
			ent.PresentCount++
		} else {
			ent.AbsentCount++
		}
		ent.CurrentStatus = t.status
		ent.RecomputeRate()
		ent.UpdatedAt = now

		if err = svc.entities.UpdateEntityStats(ctx, ent, tx); err != nil {
			return 0, errors.Wrap(err, "updating entity stats")
		}

		switch t.status {
		case roster.StatusPresent:
			summary.PresentCount++
		case roster.StatusAbsent:
			summary.AbsentCount++
		case roster.StatusLate:
			summary.LateCount++
		}
		entries = append(entries, LogEntry{Kind: kind, EntityID: ent.ID, Day: day, Status: t.status})
		touchedIDs = append(touchedIDs, ent.ID)
	}

	if kind == roster.KindStudent {
		if err = svc.repo.UpsertDaySummary(ctx, summary, tx); err != nil {
			return 0, errors.Wrap(err, "upserting day summary")
		}
	}
	if err = svc.repo.UpsertLogEntries(ctx, entries, tx); err != nil {
		return 0, errors.Wrap(err, "upserting log entries")
	}
	if err = svc.repo.DeleteWorkingMarks(ctx, kind, day, touchedIDs, tx); err != nil {
		return 0, errors.Wrap(err, "clearing working marks")
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing save transaction")
	}

	// reset the saved marks in the working view
	svc.mu.Lock()
	if svc.ledgerDay == day {
		for _, id := range touchedIDs {
			delete(svc.ledger[kind], id)
		}
	}
	svc.mu.Unlock()

	return len(touched), nil
}

// QueryLog returns permanent log records. A teacher's view is always filtered
// to their assigned class, whatever class filter was requested.
func (svc *Service) QueryLog(ctx context.Context, scope core.Scope, filter LogFilter) ([]LogRecord, error) {
	if filter.Kind == roster.KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return nil, err
		}
	}
	filter.ClassKey = scope.ClassFilter(filter.ClassKey)
	return svc.repo.FilterLog(ctx, filter)
}

// EntityLog returns one entity's permanent log, most recent day first.
func (svc *Service) EntityLog(ctx context.Context, scope core.Scope, kind roster.Kind, entityID int) ([]LogRecord, error) {
	if kind == roster.KindTeacher {
		if err := scope.RequireAdmin(); err != nil {
			return nil, err
		}
	}
	ent, err := svc.entities.GetEntityByID(ctx, kind, entityID)
	if err != nil {
		return nil, err
	}
	if err = scope.CheckClass(ent.ClassKey); err != nil {
		return nil, err
	}
	return svc.repo.FilterLog(ctx, LogFilter{Kind: kind, EntityID: entityID})
}

// History returns day summaries, most recent first; limit <= 0 means all.
func (svc *Service) History(ctx context.Context, limit int) ([]DaySummary, error) {
	return svc.repo.QueryDaySummaries(ctx, limit)
}

// SummaryFor returns the day summary for one day; ErrNoSummary when the day
// was never saved.
func (svc *Service) SummaryFor(ctx context.Context, day string) (DaySummary, error) {
	return svc.repo.GetDaySummary(ctx, day)
}
