package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/account"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/report"
	"github.com/trezcool/mahudhurio/core/roster"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
)

var (
	conf = &core.Config{
		TestMode:        true,
		AppName:         "Mahudhurio",
		SecretKey:       []byte("s3cret-test-key"),
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	db       *dummydb.DB
	app      Server
	entRepo  roster.Repository
	acctRepo account.Repository
	attRepo  attendance.Repository
	attSvc   *attendance.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestMain(m *testing.M) {
	var err error

	// set up DB & repos
	if db, err = dummydb.Open(); err != nil {
		os.Exit(1)
	}
	entRepo = dummydb.NewEntityRepository(db)
	acctRepo = dummydb.NewAccountRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	acctSvc := account.NewService(conf, acctRepo, mailSvc)
	rosterSvc := roster.NewService(entRepo)
	attRepo = dummydb.NewAttendanceRepository(db)
	attSvc = attendance.NewService(db, attRepo, entRepo, nopLogger{})
	reportSvc := report.NewService(rosterSvc, attSvc)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	roster.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	// set up server
	app = NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        nopLogger{},
			AccountSvc:    acctSvc,
			RosterSvc:     rosterSvc,
			AttendanceSvc: attSvc,
			ReportSvc:     reportSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	code := m.Run()
	os.Exit(code)
}

func resetDB(t *testing.T) {
	t.Helper()
	db.Reset()
	emailsvc.ClearSentMessages()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func createAccount(t *testing.T, name, uname, role, class, pwd string, isActive bool) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acct := account.Account{
		ID:            uuid.New().String(),
		Name:          name,
		Username:      uname,
		Role:          role,
		AssignedClass: class,
		IsActive:      &isActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword() failed, %v", err)
		}
	}
	acct, err := acctRepo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("CreateAccount() failed, %v", err)
	}
	return acct
}

func createAdmin(t *testing.T) account.Account {
	t.Helper()
	return createAccount(t, "Head Master", "head", account.RoleAdmin, "", "", true)
}

func createTeacher(t *testing.T, class string) account.Account {
	t.Helper()
	return createAccount(t, "Mrs Banda", "banda", account.RoleTeacher, class, "", true)
}

func createEntity(t *testing.T, kind roster.Kind, name, classKey string, present, absent int) roster.Entity {
	t.Helper()
	now := time.Now().UTC()
	ent := roster.Entity{
		Kind:           kind,
		Name:           name,
		ClassKey:       classKey,
		AvatarInitials: roster.AvatarInitials(name),
		PresentCount:   present,
		AbsentCount:    absent,
		TotalClasses:   present + absent,
		CurrentStatus:  roster.StatusNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ent.RecomputeRate()
	ent, err := entRepo.CreateEntity(context.Background(), ent)
	if err != nil {
		t.Fatalf("CreateEntity() failed, %v", err)
	}
	return ent
}

func getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	token, err := GenerateToken(GetAccountClaims(acct))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

// setDay pins the attendance clock for the duration of the test.
func setDay(t *testing.T, day string) {
	t.Helper()
	attendance.TodayFunc = func() string { return day }
	t.Cleanup(func() { attendance.TodayFunc = core.Today })
}

// waitForWrites lets asynchronous mark write-throughs land in the store.
func waitForWrites() { time.Sleep(20 * time.Millisecond) }

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
