package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/trezcool/mahudhurio/core/roster"
)

func studentJSON(ent roster.Entity) map[string]interface{} {
	out := map[string]interface{}{
		"id":            ent.ID,
		"name":          ent.Name,
		"grade":         ent.ClassKey,
		"whatsapp":      ent.Contact,
		"avatar":        ent.AvatarInitials,
		"attendance":    ent.Rate,
		"status":        string(ent.CurrentStatus),
		"total_classes": ent.TotalClasses,
		"present_count": ent.PresentCount,
		"absent_count":  ent.AbsentCount,
	}
	if ent.Birthdate != "" {
		out["birthdate"] = ent.Birthdate
	}
	return out
}

func teacherJSON(ent roster.Entity) map[string]interface{} {
	return map[string]interface{}{
		"id":             ent.ID,
		"name":           ent.Name,
		"assigned_class": ent.ClassKey,
		"subject":        ent.Subject,
		"whatsapp":       ent.Contact,
		"avatar":         ent.AvatarInitials,
		"attendance":     ent.Rate,
		"status":         string(ent.CurrentStatus),
		"total_classes":  ent.TotalClasses,
		"present_count":  ent.PresentCount,
		"absent_count":   ent.AbsentCount,
	}
}

func Test_rosterApi_studentQuery(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	g4a := createEntity(t, roster.KindStudent, "Chanda Mwale", "Grade 4", 9, 1)
	g7 := createEntity(t, roster.KindStudent, "Bupe Zulu", "Grade 7", 0, 0)
	g4b := createEntity(t, roster.KindStudent, "Mulenga Banda", "Grade 4", 5, 5)
	createEntity(t, roster.KindTeacher, "Mr Phiri", "Grade 7", 0, 0)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get all", path: "/v1/students", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(g4a), studentJSON(g7), studentJSON(g4b)),
		},
		{
			name: "grade filter", path: "/v1/students?grade=Grade+4", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(g4a), studentJSON(g4b)),
		},
		{
			name: "all selector", path: "/v1/students?grade=all", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(g4a), studentJSON(g7), studentJSON(g4b)),
		},
		{
			name: "teacher always gets their class", path: "/v1/students?grade=Grade+7", token: getToken(t, teacher), wantCode: http.StatusOK,
			wantData: marchallList(t, studentJSON(g4a), studentJSON(g4b)),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_rosterApi_studentCreate(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	body := func(name, grade, birthdate string) []byte {
		return marchallObj(t, map[string]string{"name": name, "grade": grade, "whatsapp": "+260971234567", "birthdate": birthdate})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: adminToken, body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required", "class_key": "this field is required"}),
		},
		{
			name: "invalid birthdate", token: adminToken, body: body("Chanda Mwale", "Grade 4", "02/03/2016"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"birthdate": "must be a valid YYYY-MM-DD day"}),
		},
		{
			name: "teacher cannot create outside their class", token: getToken(t, teacher), body: body("Bupe Zulu", "Grade 7", ""),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "created", token: adminToken, body: body("Chanda Mwale", "Grade 4", "2016-03-02"), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData map[string]interface{}
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData["grade"] != "Grade 4" || respData["avatar"] != "CM" || respData["attendance"] != float64(100) {
					t.Errorf("unexpected student: %v", respData)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_rosterApi_studentRetrieveUpdateDestroy(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	g4 := createEntity(t, roster.KindStudent, "Chanda Mwale", "Grade 4", 9, 1)
	g7 := createEntity(t, roster.KindStudent, "Bupe Zulu", "Grade 7", 0, 0)

	path := func(id int) string { return "/v1/students/" + strconv.Itoa(id) }

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "Auth required", path: path(g4.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "non-numeric id", path: "/v1/students/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
			{name: "unknown id", path: path(404), token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "entity not found"})},
			{name: "out of the teacher's class", path: path(g7.ID), token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
			{name: "found", path: path(g4.ID), token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, studentJSON(g4))},
		}
		for _, tt := range tests {
			tt.method = http.MethodGet

			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("update keeps stats", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "Chanda Mwale Jr", "grade": "Grade 4"})
		req, rec := newAuthRequest(http.MethodPut, path(g4.ID), adminToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData["name"] != "Chanda Mwale Jr" {
			t.Errorf("name = %v", respData["name"])
		}
		if respData["attendance"] != float64(90) || respData["total_classes"] != float64(10) {
			t.Errorf("stats lost: %v", respData)
		}
	})

	t.Run("teacher cannot move a student out of their class", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "Chanda Mwale Jr", "grade": "Grade 7"})
		req, rec := newAuthRequest(http.MethodPut, path(g4.ID), getToken(t, teacher), body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(g4.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, path(g4.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v, want 404", rec.Code)
		}
	})
}

func Test_rosterApi_teachersAdminOnly(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t)
	teacher := createTeacher(t, "Grade 4")
	adminToken := getToken(t, admin)

	tch := createEntity(t, roster.KindTeacher, "Mr Phiri", "Grade 7", 0, 0)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/teachers", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "list is admin only", method: http.MethodGet, path: "/v1/teachers", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "retrieve is admin only", method: http.MethodGet, path: "/v1/teachers/" + strconv.Itoa(tch.ID), token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", method: http.MethodGet, path: "/v1/teachers", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, teacherJSON(tch)),
		},
		{
			name: "class filter", method: http.MethodGet, path: "/v1/teachers?class=Grade+4", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create with assigned_class", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "Mrs Tembo", "assigned_class": "Grade 2", "subject": "Mathematics"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", adminToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData["assigned_class"] != "Grade 2" || respData["subject"] != "Mathematics" {
			t.Errorf("unexpected teacher: %v", respData)
		}
		if _, ok := respData["grade"]; ok {
			t.Error("teacher payload must not carry a grade field")
		}
	})
}
