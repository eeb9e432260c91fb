// Package report derives the dashboard and reporting views. Everything here
// is a pure read over the entity directory, the day summaries and the working
// ledger; nothing mutates state.
package report

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

const (
	// AttentionThreshold is the rate below which a student needs attention.
	AttentionThreshold = 85

	// TopPerformersLimit caps the top-performers board.
	TopPerformersLimit = 5

	// TrendLimit is the default number of recent days in the trend series.
	TrendLimit = 5
)

type Service struct {
	roster *roster.Service
	att    *attendance.Service
}

func NewService(rosterSvc *roster.Service, attSvc *attendance.Service) *Service {
	return &Service{roster: rosterSvc, att: attSvc}
}

// Today returns the banner tally for the current day. While marks are being
// taken the working ledger is the source; once saved (the ledger is cleared
// on save) the day summary is the only record left, so it is the fallback.
// The two sources are never mixed.
func (svc *Service) Today(ctx context.Context, scope core.Scope) (TodayStats, error) {
	students, err := svc.roster.Query(ctx, scope, roster.KindStudent, "")
	if err != nil {
		return TodayStats{}, err
	}
	stats := TodayStats{Students: len(students)}

	marks, err := svc.att.WorkingMarks(ctx, scope, roster.KindStudent)
	if err != nil {
		return TodayStats{}, err
	}
	if len(marks) > 0 {
		for _, status := range marks {
			switch status {
			case roster.StatusPresent:
				stats.Present++
			case roster.StatusAbsent:
				stats.Absent++
			case roster.StatusLate:
				stats.Late++
			}
		}
		return stats, nil
	}

	// the day summary is population wide; a teacher's banner falls back to
	// the day's log instead, which QueryLog scopes to their class
	if !scope.Admin {
		records, err := svc.att.QueryLog(ctx, scope, attendance.LogFilter{Kind: roster.KindStudent, Day: attendance.TodayFunc()})
		if err != nil {
			return TodayStats{}, err
		}
		for _, rec := range records {
			switch rec.Status {
			case roster.StatusPresent:
				stats.Present++
			case roster.StatusAbsent:
				stats.Absent++
			case roster.StatusLate:
				stats.Late++
			}
		}
		return stats, nil
	}

	summary, err := svc.att.SummaryFor(ctx, attendance.TodayFunc())
	if err != nil {
		if errors.Cause(err) == attendance.ErrNoSummary {
			return stats, nil
		}
		return TodayStats{}, err
	}
	stats.Present = summary.PresentCount
	stats.Absent = summary.AbsentCount
	stats.Late = summary.LateCount
	return stats, nil
}

// Trends returns the n most recent recorded days, newest first. Days with a
// zero total are skipped: they are never rendered, and never divided by.
func (svc *Service) Trends(ctx context.Context, n int) ([]TrendDay, error) {
	if n <= 0 {
		n = TrendLimit
	}
	summaries, err := svc.att.History(ctx, n)
	if err != nil {
		return nil, err
	}

	days := make([]TrendDay, 0, len(summaries))
	for _, s := range summaries {
		total := s.Total()
		if total == 0 {
			continue
		}
		days = append(days, TrendDay{
			Day:        s.Day,
			Total:      total,
			PresentPct: float64(s.PresentCount) / float64(total) * 100,
			AbsentPct:  float64(s.AbsentCount) / float64(total) * 100,
			LatePct:    float64(s.LateCount) / float64(total) * 100,
		})
	}
	return days, nil
}

// TopPerformers returns the top 5 students by rate, descending. The sort is
// stable: ties keep the directory's natural order.
func (svc *Service) TopPerformers(ctx context.Context, scope core.Scope) ([]Performer, error) {
	students, err := svc.roster.Query(ctx, scope, roster.KindStudent, "")
	if err != nil {
		return nil, err
	}

	sort.SliceStable(students, func(i, j int) bool { return students[i].Rate > students[j].Rate })
	if len(students) > TopPerformersLimit {
		students = students[:TopPerformersLimit]
	}

	top := make([]Performer, 0, len(students))
	for i, s := range students {
		top = append(top, Performer{Rank: i + 1, Badge: i < 3, Student: s})
	}
	return top, nil
}

// ClassAverages returns, per class that has students, the integer-rounded
// mean rate. Classes appear in the order their first student appears in the
// directory; empty classes are omitted, not shown as 0%.
func (svc *Service) ClassAverages(ctx context.Context, scope core.Scope) ([]ClassAverage, error) {
	students, err := svc.roster.Query(ctx, scope, roster.KindStudent, "")
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, s := range students {
		if _, ok := counts[s.ClassKey]; !ok {
			order = append(order, s.ClassKey)
		}
		sums[s.ClassKey] += s.Rate
		counts[s.ClassKey]++
	}

	averages := make([]ClassAverage, 0, len(order))
	for _, cls := range order {
		averages = append(averages, ClassAverage{
			ClassKey: cls,
			Count:    counts[cls],
			Average:  int(math.Round(float64(sums[cls]) / float64(counts[cls]))),
		})
	}
	return averages, nil
}

// Period summarizes the whole recorded history: the present/absent/late split
// relative to the grand total, the best and worst day by raw present count
// (first encountered wins ties), and the average daily presence.
func (svc *Service) Period(ctx context.Context) (PeriodSummary, error) {
	summaries, err := svc.att.History(ctx, 0)
	if err != nil {
		return PeriodSummary{}, err
	}
	if len(summaries) == 0 {
		return PeriodSummary{}, nil
	}

	var present, absent, late int
	best, worst := summaries[0], summaries[0]
	for _, s := range summaries {
		present += s.PresentCount
		absent += s.AbsentCount
		late += s.LateCount
		if s.PresentCount > best.PresentCount {
			best = s
		}
		if s.PresentCount < worst.PresentCount {
			worst = s
		}
	}

	total := present + absent + late
	pct := func(count int) int {
		if total == 0 {
			return 0
		}
		return int(math.Round(float64(count) / float64(total) * 100))
	}
	return PeriodSummary{
		DaysRecorded:    len(summaries),
		PresentPct:      pct(present),
		AbsentPct:       pct(absent),
		LatePct:         pct(late),
		AvgDailyPresent: int(math.Round(float64(present) / float64(len(summaries)))),
		BestDay:         best,
		WorstDay:        worst,
	}, nil
}

// Attention returns the students whose rate is below the threshold, in the
// directory's natural order.
func (svc *Service) Attention(ctx context.Context, scope core.Scope) ([]roster.Entity, error) {
	students, err := svc.roster.Query(ctx, scope, roster.KindStudent, "")
	if err != nil {
		return nil, err
	}

	low := make([]roster.Entity, 0)
	for _, s := range students {
		if s.Rate < AttentionThreshold {
			low = append(low, s)
		}
	}
	return low, nil
}
