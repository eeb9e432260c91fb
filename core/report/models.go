package report

import (
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

// TodayStats is the dashboard banner tally for the current day.
type TodayStats struct {
	Students int `json:"students"`
	Present  int `json:"present"`
	Absent   int `json:"absent"`
	Late     int `json:"late"`
}

// TrendDay is one day's bar in the recent-trend series.
type TrendDay struct {
	Day        string  `json:"date"`
	Total      int     `json:"total"`
	PresentPct float64 `json:"present_pct"`
	AbsentPct  float64 `json:"absent_pct"`
	LatePct    float64 `json:"late_pct"`
}

// Performer is one row of the top-performers board. Ranks 1-3 carry a badge,
// lower ranks show the number.
type Performer struct {
	Rank    int           `json:"rank"`
	Badge   bool          `json:"badge"`
	Student roster.Entity `json:"-"`
}

// ClassAverage is the integer-rounded mean attendance rate of one class.
// Classes with no students are never reported.
type ClassAverage struct {
	ClassKey string `json:"class_key"`
	Count    int    `json:"count"`
	Average  int    `json:"average"`
}

// PeriodSummary aggregates the whole recorded history.
type PeriodSummary struct {
	DaysRecorded    int                   `json:"days_recorded"`
	PresentPct      int                   `json:"present_pct"`
	AbsentPct       int                   `json:"absent_pct"`
	LatePct         int                   `json:"late_pct"`
	AvgDailyPresent int                   `json:"avg_daily_present"`
	BestDay         attendance.DaySummary `json:"best_day"`
	WorstDay        attendance.DaySummary `json:"worst_day"`
}
