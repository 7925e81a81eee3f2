package service

import (
	"strings"

	"github.com/parishhub/parish/internal/model"
)

// FamilyInput is the body of a family registration, self-service or by an admin.
type FamilyInput struct {
	RegisterNo   string      `json:"registerNo" validate:"omitempty,max=50"`
	FamilyName   string      `json:"familyName" validate:"required,max=200"`
	HeadOfFamily string      `json:"headOfFamily" validate:"required,max=200"`
	DateOfBirth  *model.Date `json:"dateOfBirth"`
	BloodGroup   string      `json:"bloodGroup" validate:"max=10"`
	NationalID   string      `json:"nationalId" validate:"max=50"`
	Occupation   string      `json:"occupation" validate:"max=200"`
	Education    string      `json:"education" validate:"max=200"`

	ParishUnit string `json:"parishUnit" validate:"max=200"`
	Kara       string `json:"kara" validate:"max=200"`
	Village    string `json:"village" validate:"max=200"`
	PostOffice string `json:"postOffice" validate:"max=200"`
	Pincode    string `json:"pincode" validate:"max=20"`
	Panchayat  string `json:"panchayat" validate:"max=200"`
	District   string `json:"district" validate:"max=200"`
	Address    string `json:"address" validate:"max=1000"`

	Phone    string `json:"phone" validate:"required,phone"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`

	// Members and Active are honoured only when an admin creates the family.
	Members []MemberInput `json:"members" validate:"dive"`
	Active  *bool         `json:"active"`
}

func (in FamilyInput) toModel() *model.FamilyUnit {
	return &model.FamilyUnit{
		RegisterNo:   strings.TrimSpace(in.RegisterNo),
		FamilyName:   strings.TrimSpace(in.FamilyName),
		HeadOfFamily: strings.TrimSpace(in.HeadOfFamily),
		DateOfBirth:  in.DateOfBirth,
		BloodGroup:   strings.TrimSpace(in.BloodGroup),
		NationalID:   strings.TrimSpace(in.NationalID),
		Occupation:   strings.TrimSpace(in.Occupation),
		Education:    strings.TrimSpace(in.Education),
		ParishUnit:   strings.TrimSpace(in.ParishUnit),
		Kara:         strings.TrimSpace(in.Kara),
		Village:      strings.TrimSpace(in.Village),
		PostOffice:   strings.TrimSpace(in.PostOffice),
		Pincode:      strings.TrimSpace(in.Pincode),
		Panchayat:    strings.TrimSpace(in.Panchayat),
		District:     strings.TrimSpace(in.District),
		Address:      strings.TrimSpace(in.Address),
		Phone:        strings.TrimSpace(in.Phone),
		WhatsApp:     strings.TrimSpace(in.WhatsApp),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Members:      []model.Member{},
		Active:       true,
	}
}

// MemberInput describes a new member. A client-supplied age is not part of
// the input; ages are always derived from the birth date.
type MemberInput struct {
	ID           string       `json:"id"`
	Name         string       `json:"name" validate:"required,max=200"`
	Gender       model.Gender `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	DateOfBirth  *model.Date  `json:"dateOfBirth"`
	Relationship string       `json:"relationship" validate:"max=100"`
	Education    string       `json:"education" validate:"max=200"`
	Occupation   string       `json:"occupation" validate:"max=200"`
	BloodGroup   string       `json:"bloodGroup" validate:"max=10"`
	Mobile       string       `json:"mobile" validate:"omitempty,phone"`
	Email        string       `json:"email" validate:"omitempty,email"`
	BaptismDate  *model.Date  `json:"baptismDate"`
	MarriageDate *model.Date  `json:"marriageDate"`
}

func (in MemberInput) toModel(id string) model.Member {
	return model.Member{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Gender:       in.Gender,
		DateOfBirth:  in.DateOfBirth,
		Relationship: strings.TrimSpace(in.Relationship),
		Education:    strings.TrimSpace(in.Education),
		Occupation:   strings.TrimSpace(in.Occupation),
		BloodGroup:   strings.TrimSpace(in.BloodGroup),
		Mobile:       strings.TrimSpace(in.Mobile),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		BaptismDate:  in.BaptismDate,
		MarriageDate: in.MarriageDate,
	}
}

// MemberPatch carries a partial member update; nil fields are left alone.
type MemberPatch struct {
	Name         *string       `json:"name" validate:"omitempty,min=1,max=200"`
	Gender       *model.Gender `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	DateOfBirth  *model.Date   `json:"dateOfBirth"`
	Relationship *string       `json:"relationship" validate:"omitempty,max=100"`
	Education    *string       `json:"education" validate:"omitempty,max=200"`
	Occupation   *string       `json:"occupation" validate:"omitempty,max=200"`
	BloodGroup   *string       `json:"bloodGroup" validate:"omitempty,max=10"`
	Mobile       *string       `json:"mobile" validate:"omitempty,phone"`
	Email        *string       `json:"email" validate:"omitempty,email"`
	BaptismDate  *model.Date   `json:"baptismDate"`
	MarriageDate *model.Date   `json:"marriageDate"`
}

func (p MemberPatch) apply(m *model.Member) {
	setString(&m.Name, p.Name)
	if p.Gender != nil {
		m.Gender = *p.Gender
	}
	setDate(&m.DateOfBirth, p.DateOfBirth)
	setString(&m.Relationship, p.Relationship)
	setString(&m.Education, p.Education)
	setString(&m.Occupation, p.Occupation)
	setString(&m.BloodGroup, p.BloodGroup)
	setString(&m.Mobile, p.Mobile)
	if p.Email != nil {
		m.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	setDate(&m.BaptismDate, p.BaptismDate)
	setDate(&m.MarriageDate, p.MarriageDate)
}

// ProfilePatch is the part of a family a family account may edit itself.
type ProfilePatch struct {
	FamilyName   *string     `json:"familyName" validate:"omitempty,min=1,max=200"`
	HeadOfFamily *string     `json:"headOfFamily" validate:"omitempty,min=1,max=200"`
	DateOfBirth  *model.Date `json:"dateOfBirth"`
	BloodGroup   *string     `json:"bloodGroup" validate:"omitempty,max=10"`
	NationalID   *string     `json:"nationalId" validate:"omitempty,max=50"`
	Occupation   *string     `json:"occupation" validate:"omitempty,max=200"`
	Education    *string     `json:"education" validate:"omitempty,max=200"`

	ParishUnit *string `json:"parishUnit" validate:"omitempty,max=200"`
	Kara       *string `json:"kara" validate:"omitempty,max=200"`
	Village    *string `json:"village" validate:"omitempty,max=200"`
	PostOffice *string `json:"postOffice" validate:"omitempty,max=200"`
	Pincode    *string `json:"pincode" validate:"omitempty,max=20"`
	Panchayat  *string `json:"panchayat" validate:"omitempty,max=200"`
	District   *string `json:"district" validate:"omitempty,max=200"`
	Address    *string `json:"address" validate:"omitempty,max=1000"`

	WhatsApp *string `json:"whatsapp" validate:"omitempty,phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

func (p ProfilePatch) apply(f *model.FamilyUnit) {
	setString(&f.FamilyName, p.FamilyName)
	setString(&f.HeadOfFamily, p.HeadOfFamily)
	setDate(&f.DateOfBirth, p.DateOfBirth)
	setString(&f.BloodGroup, p.BloodGroup)
	setString(&f.NationalID, p.NationalID)
	setString(&f.Occupation, p.Occupation)
	setString(&f.Education, p.Education)
	setString(&f.ParishUnit, p.ParishUnit)
	setString(&f.Kara, p.Kara)
	setString(&f.Village, p.Village)
	setString(&f.PostOffice, p.PostOffice)
	setString(&f.Pincode, p.Pincode)
	setString(&f.Panchayat, p.Panchayat)
	setString(&f.District, p.District)
	setString(&f.Address, p.Address)
	setString(&f.WhatsApp, p.WhatsApp)
	if p.Email != nil {
		f.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
}

// FamilyPatch is an admin update. Members, when present, replaces the whole
// member list.
type FamilyPatch struct {
	ProfilePatch
	RegisterNo *string        `json:"registerNo" validate:"omitempty,max=50"`
	Phone      *string        `json:"phone" validate:"omitempty,phone"`
	Active     *bool          `json:"active"`
	Members    *[]MemberInput `json:"members" validate:"omitempty,dive"`
}

// AdminInput creates an admin account.
type AdminInput struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8,max=72"`
	Role        model.Role         `json:"role" validate:"required,oneof=super_admin admin moderator"`
	Permissions []model.Permission `json:"permissions" validate:"dive,permission"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setDate(dst **model.Date, v *model.Date) {
	if v != nil {
		d := *v
		*dst = &d
	}
}
