package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/report"
	"github.com/trezcool/mahudhurio/core/roster"
)

func upsertSummary(t *testing.T, summary attendance.DaySummary) {
	t.Helper()
	if err := attRepo.UpsertDaySummary(context.Background(), summary); err != nil {
		t.Fatalf("UpsertDaySummary() failed, %v", err)
	}
}

func performerJSON(rank int, badge bool, ent roster.Entity) map[string]interface{} {
	out := studentJSON(ent)
	out["rank"] = rank
	out["badge"] = badge
	return out
}

func Test_reportApi_today(t *testing.T) {
	resetDB(t)
	setDay(t, "2026-05-10")

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)

	g4 := createEntity(t, roster.KindStudent, "Chanda Mwale", "Grade 4", 9, 1)
	createEntity(t, roster.KindStudent, "Bupe Zulu", "Grade 7", 0, 0)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "nothing marked, nothing saved", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, report.TodayStats{Students: 2}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/reports/today", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("working marks drive the tally", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"id": g4.ID, "status": "late"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/mark", adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, report.TodayStats{Students: 2, Late: 1})}
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports/today", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// teacher only ever sees their class
		tt = httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, report.TodayStats{Students: 1, Late: 1})}
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports/today", teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("saved summary is the fallback", func(t *testing.T) {
		waitForWrites()
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/save", adminToken, marchallObj(t, map[string]string{"date": "2026-05-10"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, report.TodayStats{Students: 2, Late: 1})}
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports/today", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// the teacher fallback stays class scoped
		tt = httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, report.TodayStats{Students: 1, Late: 1})}
		req, rec = newAuthRequest(http.MethodGet, "/v1/reports/today", teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_reportApi_trends(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	adminToken := getToken(t, admin)

	upsertSummary(t, attendance.DaySummary{Day: "2026-05-01", PresentCount: 1, AbsentCount: 1, LateCount: 2})
	upsertSummary(t, attendance.DaySummary{Day: "2026-05-02", PresentCount: 3, AbsentCount: 1})
	upsertSummary(t, attendance.DaySummary{Day: "2026-05-03"}) // zero total, skipped

	tests := []httpTest{
		{
			name: "newest first, zero days skipped", path: "/v1/reports/trends",
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				report.TrendDay{Day: "2026-05-02", Total: 4, PresentPct: 75, AbsentPct: 25},
				report.TrendDay{Day: "2026-05-01", Total: 4, PresentPct: 25, AbsentPct: 25, LatePct: 50},
			),
		},
		{
			name: "days param limits the series", path: "/v1/reports/trends?days=2",
			wantCode: http.StatusOK,
			wantData: marchallList(t, report.TrendDay{Day: "2026-05-02", Total: 4, PresentPct: 75, AbsentPct: 25}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, adminToken)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_topPerformers(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	ann := createEntity(t, roster.KindStudent, "Ann Tembo", "Grade 4", 9, 1)    // 90
	ben := createEntity(t, roster.KindStudent, "Ben Sakala", "Grade 4", 10, 0)  // 100
	col := createEntity(t, roster.KindStudent, "Col Daka", "Grade 7", 9, 1)     // 90, ties keep natural order
	dan := createEntity(t, roster.KindStudent, "Dan Lungu", "Grade 7", 19, 1)   // 95
	createEntity(t, roster.KindTeacher, "Mr Phiri", "Grade 7", 0, 0)

	tests := []httpTest{
		{
			name: "sorted by rate, badges for the podium", token: adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				performerJSON(1, true, ben),
				performerJSON(2, true, dan),
				performerJSON(3, true, ann),
				performerJSON(4, false, col),
			),
		},
		{
			name: "teacher board is class scoped", token: getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				performerJSON(1, true, ben),
				performerJSON(2, true, ann),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/reports/top-performers", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_classAverages(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")

	createEntity(t, roster.KindStudent, "Ann Tembo", "Grade 4", 9, 1)   // 90
	createEntity(t, roster.KindStudent, "Ben Sakala", "Grade 4", 10, 0) // 100
	createEntity(t, roster.KindStudent, "Col Daka", "Grade 7", 9, 1)    // 90
	createEntity(t, roster.KindStudent, "Dan Lungu", "Grade 7", 19, 1)  // 95

	tests := []httpTest{
		{
			name: "per class, rounded", token: getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				report.ClassAverage{ClassKey: "Grade 4", Count: 2, Average: 95},
				report.ClassAverage{ClassKey: "Grade 7", Count: 2, Average: 93},
			),
		},
		{
			name: "teacher sees their class only", token: getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t, report.ClassAverage{ClassKey: "Grade 4", Count: 2, Average: 95}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/reports/class-averages", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_summary(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	adminToken := getToken(t, admin)

	t.Run("no history", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, report.PeriodSummary{})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/summary", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("whole period", func(t *testing.T) {
		best := attendance.DaySummary{Day: "2026-05-04", PresentCount: 8, AbsentCount: 1, LateCount: 1}
		worst := attendance.DaySummary{Day: "2026-05-05", PresentCount: 6, AbsentCount: 2, LateCount: 2}
		upsertSummary(t, best)
		upsertSummary(t, worst)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, report.PeriodSummary{
				DaysRecorded:    2,
				PresentPct:      70,
				AbsentPct:       15,
				LatePct:         15,
				AvgDailyPresent: 7,
				BestDay:         best,
				WorstDay:        worst,
			}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/summary", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_reportApi_attention(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")

	createEntity(t, roster.KindStudent, "Ann Tembo", "Grade 4", 9, 1) // 90, fine
	eve := createEntity(t, roster.KindStudent, "Eve Mumba", "Grade 4", 3, 2)  // 60
	fred := createEntity(t, roster.KindStudent, "Fred Moyo", "Grade 7", 21, 4) // 84, just under

	tests := []httpTest{
		{
			name: "below threshold only", token: getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(eve), studentJSON(fred)),
		},
		{
			name: "teacher list is class scoped", token: getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(eve)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/reports/attention", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
