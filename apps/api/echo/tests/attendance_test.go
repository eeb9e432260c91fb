package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

func Test_attendanceApi_mark(t *testing.T) {
	resetDB(t)
	setDay(t, "2026-04-01")

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	g4 := createEntity(t, roster.KindStudent, "Chanda Mwale", "Grade 4", 0, 0)
	g7 := createEntity(t, roster.KindStudent, "Bupe Zulu", "Grade 7", 0, 0)

	markBody := func(id int, status string) []byte {
		return marchallObj(t, map[string]interface{}{"id": id, "status": status})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid status", token: adminToken, body: markBody(g4.ID, "lol"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid attendance status"}),
		},
		{
			name: "unknown entity", token: adminToken, body: markBody(404, "present"),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "entity not found"}),
		},
		{
			name: "out of the teacher's class", token: getToken(t, teacher), body: markBody(g7.ID, "present"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "marked", token: adminToken, body: markBody(g4.ID, "late"), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/attendance/mark"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("records reflect the last mark", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/mark", adminToken, markBody(g4.ID, "present"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]string{strconv.Itoa(g4.ID): "present"}),
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/records", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_attendanceApi_save(t *testing.T) {
	resetDB(t)
	const day = "2026-04-02"
	setDay(t, day)

	admin := createAdmin(t)
	adminToken := getToken(t, admin)

	ent := createEntity(t, roster.KindStudent, "Chanda Mwale", "Grade 4", 9, 1)

	saveBody := marchallObj(t, map[string]string{"date": day})

	t.Run("nothing marked", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "no attendance marked for this day"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/save", adminToken, saveBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("invalid date", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/save", adminToken, marchallObj(t, map[string]string{"date": "lol"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("saved", func(t *testing.T) {
		markBody := marchallObj(t, map[string]interface{}{"id": ent.ID, "status": "late"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/mark", adminToken, markBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		waitForWrites()

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"date": day, "updated": 1}),
		}
		req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/save", adminToken, saveBody)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// late still counts toward presence
		var respData map[string]interface{}
		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+strconv.Itoa(ent.ID), adminToken)
		app.ServeHTTP(rec, req)
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData["present_count"] != float64(10) || respData["total_classes"] != float64(11) || respData["attendance"] != float64(91) {
			t.Errorf("stats not reconciled: %v", respData)
		}
		if respData["status"] != "late" {
			t.Errorf("status = %v, want late", respData["status"])
		}
	})

	t.Run("history and entity log", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t, attendance.DaySummary{Day: day, LateCount: 1}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/history?limit=5", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		tt = httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t, attendance.LogRecord{
				Day: day, Status: roster.StatusLate, EntityID: ent.ID, Name: ent.Name, ClassKey: ent.ClassKey,
			}),
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+strconv.Itoa(ent.ID)+"/log", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("log filters", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallList(t, attendance.LogRecord{
				Day: day, Status: roster.StatusLate, EntityID: ent.ID, Name: ent.Name, ClassKey: ent.ClassKey,
			}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/log?date="+day+"&class=Grade+4", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		tt = httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}
		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/log?class=Grade+7", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_attendanceApi_teacherPopulationAdminOnly(t *testing.T) {
	resetDB(t)
	setDay(t, "2026-04-03")

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)

	tch := createEntity(t, roster.KindTeacher, "Mr Phiri", "Grade 7", 0, 0)
	markBody := marchallObj(t, map[string]interface{}{"id": tch.ID, "status": "present"})

	tests := []httpTest{
		{
			name: "mark is admin only", method: http.MethodPost, path: "/v1/teacher-attendance/mark", token: teacherToken,
			body: markBody, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "records is admin only", method: http.MethodGet, path: "/v1/teacher-attendance/records", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "save is admin only", method: http.MethodPost, path: "/v1/teacher-attendance/save", token: teacherToken,
			body: marchallObj(t, map[string]string{"date": "2026-04-03"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin marks and saves teachers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/teacher-attendance/mark", adminToken, markBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		waitForWrites()

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"date": "2026-04-03", "updated": 1}),
		}
		req, rec = newAuthRequest(http.MethodPost, "/v1/teacher-attendance/save", adminToken, marchallObj(t, map[string]string{"date": "2026-04-03"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		// teacher saves never touch the student day summary
		req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/history", adminToken)
		app.ServeHTTP(rec, req)
		tt = httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}
		checkCodeAndData(t, tt, rec)
	})
}
