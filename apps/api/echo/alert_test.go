package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/user"
	emailsvc "github.com/trezcool/lifeline/services/email"
)

func TestTriggerAlert(t *testing.T) {
	app := setup(t)

	requester := app.createUser(t, "Requester", "requester", "requester@test.cd", user.DonorRoles)
	token := getToken(t, requester)

	d1User := app.createUser(t, "Donor One", "donor1", "d1@test.cd", user.DonorRoles)
	d2User := app.createUser(t, "Donor Two", "donor2", "d2@test.cd", user.DonorRoles)
	app.createDonor(t, d1User, "O-", "500001", "111")
	app.createDonor(t, d2User, "O-", "500001", "")

	criteria := map[string]string{"bloodgroup": "O-", "pincode": "500001", "contact_phone": "9999999999"}

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/alerts", criteria)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid criteria", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/alerts", token, map[string]string{"bloodgroup": "O-"})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exact match dispatch", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		req, rec := newAuthRequest(http.MethodPost, "/v1/alerts", token, criteria)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var res alert.Result
		decodeBody(t, rec, &res)
		assert.False(t, res.UsedFallback)
		assert.Equal(t, 2, res.Matched)
		assert.Equal(t, 2, res.EmailSent)
		assert.Equal(t, 0, res.EmailFailed)
		assert.Len(t, emailsvc.SentMessages, 2)

		audits, err := app.alertRepo.QueryAudit(context.TODO())
		assert.NoError(t, err)
		if assert.Len(t, audits, 1) {
			assert.Equal(t, "O-", audits[0].BloodType)
			assert.Equal(t, requester.ID, audits[0].TriggeredBy)
		}
	})

	t.Run("form-encoded dispatch", func(t *testing.T) {
		form := url.Values{}
		form.Set("bloodgroup", "O-")
		form.Set("pincode", "500001")
		form.Set("contact_phone", "9999999999")
		req := httptest.NewRequest(http.MethodPost, "/v1/alerts", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var res alert.Result
		decodeBody(t, rec, &res)
		assert.Equal(t, 2, res.Matched)
	})

	t.Run("fallback to all donors", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/alerts", token,
			map[string]string{"bloodgroup": "AB-", "pincode": "110011", "contact_phone": "9999999999"})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var res alert.Result
		decodeBody(t, rec, &res)
		assert.True(t, res.UsedFallback)
		assert.Equal(t, 2, res.Matched)
	})

	t.Run("no donors registered", func(t *testing.T) {
		empty := setup(t)
		usr := empty.createUser(t, "Requester", "requester", "requester@test.cd", user.DonorRoles)

		req, rec := newAuthRequest(http.MethodPost, "/v1/alerts", getToken(t, usr), criteria)
		empty.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAlertHistory(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "admin1", "admin@test.cd", user.AllRoles)
	regular := app.createUser(t, "Donor", "donor1", "donor@test.cd", user.DonorRoles)

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/alerts", getToken(t, regular))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("empty history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/alerts", getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestRespond(t *testing.T) {
	app := setup(t)

	usr := app.createUser(t, "Donor One", "donor1", "d1@test.cd", user.DonorRoles)
	d := app.createDonor(t, usr, "O-", "500001", "111")

	t.Run("missing params", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/alerts/respond")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("known donor", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/alerts/respond?email=d1@test.cd&blood_type=O-")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)

		refreshed, err := app.donorRepo.GetDonorByID(context.TODO(), d.ID)
		assert.NoError(t, err)
		assert.True(t, refreshed.LastResponseAt.Valid)
	})

	t.Run("unknown email gets the same acknowledgement", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/alerts/respond?email=ghost@test.cd&blood_type=O-")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		rl := setup(t)
		var last int
		for i := 0; i < core.Conf.ResponseRateLimitBurst+2; i++ {
			req, rec := newRequest(http.MethodGet, "/v1/alerts/respond?email=ghost@test.cd&blood_type=O-")
			rl.server.ServeHTTP(rec, req)
			last = rec.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})
}
