package donor

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lifeline/core"
)

type Donor struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Name           string      `json:"name"`
	DOB            time.Time   `json:"dob"`
	Gender         string      `json:"gender"`
	Phone          string      `json:"phone"`
	City           string      `json:"city"`
	Pincode        string      `json:"pincode"`
	BloodType      string      `json:"blood_type"`
	PictureURL     null.String `json:"picture_url,omitempty"`
	LastResponseAt null.Time   `json:"last_response_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
	UpdatedAt      time.Time   `json:"updated_at"` // UTC
}

// Contact is a read-only notification projection of a donor record.
// Phone may be empty; Email never is (accounts require one to be notified).
type Contact struct {
	DonorID string `json:"donor_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
}

// NewDonor contains information needed to create a donor profile.
type NewDonor struct {
	UserID    string `json:"-" form:"-"`
	Name      string `json:"name" form:"name" validate:"required"`
	DOB       string `json:"dob" form:"dob" validate:"required,datetime=2006-01-02"`
	Gender    string `json:"gender" form:"gender" validate:"required,oneof=male female other"`
	Phone     string `json:"phone" form:"phone" validate:"required,phone"`
	City      string `json:"city" form:"city" validate:"required"`
	Pincode   string `json:"pincode" form:"pincode" validate:"required,pincode"`
	BloodType string `json:"blood_group" form:"blood_group" validate:"required,bloodtype"`
}

func (nd *NewDonor) Validate() error {
	nd.Name = core.CleanString(nd.Name)
	nd.City = core.CleanString(nd.City)
	nd.Pincode = core.CleanString(nd.Pincode)
	nd.Phone = core.CleanString(nd.Phone)
	nd.BloodType = core.CleanString(nd.BloodType, true /* lower */)
	nd.BloodType = normalizeBloodType(nd.BloodType)
	return core.Validate.Struct(nd)
}

// UpdateDonor defines what information may be provided to modify a donor profile.
// Empty fields are left unchanged.
type UpdateDonor struct {
	Name      string `json:"name" form:"name"`
	DOB       string `json:"dob" form:"dob" validate:"omitempty,datetime=2006-01-02"`
	Phone     string `json:"phone" form:"phone" validate:"omitempty,phone"`
	City      string `json:"city" form:"city"`
	Pincode   string `json:"pincode" form:"pincode" validate:"omitempty,pincode"`
	BloodType string `json:"blood_group" form:"blood_group" validate:"omitempty,bloodtype"`
}

func (ud *UpdateDonor) Validate() error {
	ud.Name = core.CleanString(ud.Name)
	ud.City = core.CleanString(ud.City)
	ud.Pincode = core.CleanString(ud.Pincode)
	ud.Phone = core.CleanString(ud.Phone)
	if ud.BloodType != "" {
		ud.BloodType = normalizeBloodType(core.CleanString(ud.BloodType, true /* lower */))
	}
	return core.Validate.Struct(ud)
}

type SearchFilter struct {
	BloodType string `query:"bloodgroup"`
	Pincode   string `query:"pincode"`
	City      string `query:"city"`
}

func (sf *SearchFilter) IsEmpty() bool {
	return sf.BloodType == "" && sf.Pincode == "" && sf.City == ""
}

func (sf *SearchFilter) Clean() {
	sf.BloodType = normalizeBloodType(core.CleanString(sf.BloodType, true /* lower */))
	sf.Pincode = core.CleanString(sf.Pincode)
	sf.City = core.CleanString(sf.City)
}

type LeaderboardEntry struct {
	DonorID        string    `json:"donor_id"`
	Name           string    `json:"name"`
	BloodType      string    `json:"blood_type"`
	City           string    `json:"city"`
	Responses      int       `json:"responses"`
	LastResponseAt null.Time `json:"last_response_at,omitempty"`
}

// normalizeBloodType maps user input ("ab+", "o-") to the canonical
// upper-case blood group and leaves anything unrecognized for the validator.
func normalizeBloodType(bt string) string {
	return strings.ToUpper(bt)
}
