package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/user"
)

func TestCreateDonorProfile(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.DonorRoles)
	token := getToken(t, usr)

	data := donor.NewDonor{
		Name:      "Jane Doe",
		DOB:       "1990-01-01",
		Gender:    "female",
		Phone:     "9876543210",
		City:      "Hyderabad",
		Pincode:   "500001",
		BloodType: "O-",
	}

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/donors", data)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/donors", token, data)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var d donor.Donor
		decodeBody(t, rec, &d)
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, usr.ID, d.UserID)
		assert.Equal(t, "O-", d.BloodType)
	})

	t.Run("one profile per user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/donors", token, data)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid blood group", func(t *testing.T) {
		bad := data
		bad.BloodType = "Z+"
		other := app.createUser(t, "John Doe", "johndoe", "john@test.cd", user.DonorRoles)

		req, rec := newAuthRequest(http.MethodPost, "/v1/donors", getToken(t, other), bad)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDonorProfile(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.DonorRoles)
	d := app.createDonor(t, usr, "B+", "500001", "9876543210")
	token := getToken(t, usr)

	t.Run("own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/donors/me", token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got donor.Donor
		decodeBody(t, rec, &got)
		assert.Equal(t, d.ID, got.ID)
	})

	t.Run("no profile yet", func(t *testing.T) {
		bare := app.createUser(t, "John Doe", "johndoe", "john@test.cd", user.DonorRoles)

		req, rec := newAuthRequest(http.MethodGet, "/v1/donors/me", getToken(t, bare))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/donors/me", token,
			donor.UpdateDonor{City: "Mumbai", Pincode: "400001"})
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got donor.Donor
		decodeBody(t, rec, &got)
		assert.Equal(t, "Mumbai", got.City)
		assert.Equal(t, "400001", got.Pincode)
		assert.Equal(t, "B+", got.BloodType)
	})

	t.Run("by id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/donors/"+d.ID, token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/donors/nope", token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDonorSearch(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Searcher", "searcher1", "searcher@test.cd", user.DonorRoles)
	token := getToken(t, usr)

	u1 := app.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.DonorRoles)
	u2 := app.createUser(t, "John Doe", "johndoe", "john@test.cd", user.DonorRoles)
	u3 := app.createUser(t, "Jack Doe", "jackdoe", "jack@test.cd", user.DonorRoles)
	app.createDonor(t, u1, "O-", "500001", "111")
	app.createDonor(t, u2, "O-", "400001", "222")
	app.createDonor(t, u3, "A+", "500001", "333")

	search := func(t *testing.T, query string) []donor.Donor {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/donors"+query, token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var donors []donor.Donor
		decodeBody(t, rec, &donors)
		return donors
	}

	t.Run("all", func(t *testing.T) {
		assert.Len(t, search(t, ""), 3)
	})

	t.Run("by blood group", func(t *testing.T) {
		donors := search(t, "?bloodgroup=O-")
		assert.Len(t, donors, 2)
		for _, d := range donors {
			assert.Equal(t, "O-", d.BloodType)
		}
	})

	t.Run("by blood group and pincode", func(t *testing.T) {
		donors := search(t, "?bloodgroup=O-&pincode=500001")
		if assert.Len(t, donors, 1) {
			assert.Equal(t, u1.ID, donors[0].UserID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, search(t, "?bloodgroup=AB-"))
	})
}

func TestLeaderboard(t *testing.T) {
	app := setup(t)

	u1 := app.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.DonorRoles)
	u2 := app.createUser(t, "John Doe", "johndoe", "john@test.cd", user.DonorRoles)
	d1 := app.createDonor(t, u1, "O-", "500001", "111")
	d2 := app.createDonor(t, u2, "A+", "500001", "222")

	respond := func(t *testing.T, d donor.Donor, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			_, err := app.alertRepo.CreateDonorResponse(context.TODO(), alert.DonorResponse{
				DonorID:     d.ID,
				BloodType:   d.BloodType,
				RespondedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
		}
	}
	respond(t, d1, 1)
	respond(t, d2, 3)

	// public endpoint, no token needed
	req, rec := newRequest(http.MethodGet, "/v1/donors/leaderboard")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var entries []donor.LeaderboardEntry
	decodeBody(t, rec, &entries)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, d2.ID, entries[0].DonorID)
		assert.Equal(t, 3, entries[0].Responses)
		assert.Equal(t, d1.ID, entries[1].DonorID)
	}
}
