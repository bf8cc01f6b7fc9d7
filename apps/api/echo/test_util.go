package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/messaging"
	"github.com/trezcool/lifeline/core/user"
	broadcastsvc "github.com/trezcool/lifeline/services/broadcast"
	emailsvc "github.com/trezcool/lifeline/services/email"
	inmemdb "github.com/trezcool/lifeline/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

type testApp struct {
	server Server

	db        *inmemdb.DB
	usrRepo   user.Repository
	donorRepo donor.Repository
	alertRepo interface {
		alert.AuditLog
		alert.ResponseLog
		AuditHistory
	}
	usrSvc   user.Service
	donorSvc donor.Service
	hub      *broadcastsvc.Hub
}

func setup(t *testing.T) *testApp {
	t.Helper()
	core.Conf.Debug = false
	core.Conf.TestMode = true
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	donorRepo := inmemdb.NewDonorRepository(db)
	msgRepo := inmemdb.NewMessageRepository(db)
	alertRepo := inmemdb.NewAlertRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := nopLogger{}
	hub := broadcastsvc.NewHub()

	usrSvc := user.NewServiceMock(usrRepo, mailSvc, logger)
	donorSvc := donor.NewService(donorRepo, logger)
	msgSvc := messaging.NewService(msgRepo, usrSvc, hub)
	dispatcher := alert.NewDispatcher(donorSvc, alert.NewEmailChannel(mailSvc), nil, alertRepo, hub, logger)
	recorder := alert.NewRecorder(donorSvc, alertRepo)

	app := &testApp{
		db:        db,
		usrRepo:   usrRepo,
		donorRepo: donorRepo,
		alertRepo: alertRepo,
		usrSvc:    usrSvc,
		donorSvc:  donorSvc,
		hub:       hub,
	}
	app.server = NewServer(
		&Options{
			Addr:           ":0",
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			DonorSvc:       donorSvc,
			MessagingSvc:   msgSvc,
			Dispatcher:     dispatcher,
			Recorder:       recorder,
			AuditLog:       alertRepo,
			Broadcaster:    hub,
			Logger:         logger,
		},
		func() {},
	)
	return app
}

func (app *testApp) createUser(t *testing.T, name, uname, email string, roles []string) user.User {
	t.Helper()
	isActive := true
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		Roles:    roles,
		IsActive: &isActive,
	}
	if err := usr.SetPassword("Tr0ub4dor&3"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := app.usrRepo.CreateUser(context.TODO(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createDonor(t *testing.T, usr user.User, bloodType, pincode, phone string) donor.Donor {
	t.Helper()
	d := donor.Donor{
		UserID:    usr.ID,
		Name:      usr.Name,
		DOB:       time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:    "other",
		Phone:     phone,
		City:      "Hyderabad",
		Pincode:   pincode,
		BloodType: bloodType,
	}
	d, err := app.donorRepo.CreateDonor(context.TODO(), d)
	if err != nil {
		t.Fatalf("createDonor() failed: %v", err)
	}
	return d
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		_ = json.NewEncoder(&body).Encode(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
}
