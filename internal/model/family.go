package model

import "time"

// FamilyUnit is one registered household. Members are owned by the family and
// are always loaded and persisted together with it.
type FamilyUnit struct {
	ID           int64  `json:"id"`
	RegisterNo   string `json:"registerNo,omitempty"`
	FamilyName   string `json:"familyName"`
	HeadOfFamily string `json:"headOfFamily"`
	DateOfBirth  *Date  `json:"dateOfBirth,omitempty"`
	Age          *int   `json:"age,omitempty"`
	BloodGroup   string `json:"bloodGroup,omitempty"`
	NationalID   string `json:"nationalId,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Education    string `json:"education,omitempty"`

	ParishUnit string `json:"parishUnit,omitempty"`
	Kara       string `json:"kara,omitempty"`
	Village    string `json:"village,omitempty"`
	PostOffice string `json:"postOffice,omitempty"`
	Pincode    string `json:"pincode,omitempty"`
	Panchayat  string `json:"panchayat,omitempty"`
	District   string `json:"district,omitempty"`
	Address    string `json:"address,omitempty"`

	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Email    string `json:"email,omitempty"`

	Members      []Member  `json:"members"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Member returns the member with the given id and its index, or (nil, -1).
func (f *FamilyUnit) Member(id string) (*Member, int) {
	for i := range f.Members {
		if f.Members[i].ID == id {
			return &f.Members[i], i
		}
	}
	return nil, -1
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Member is a person embedded in a family's member list.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Gender       Gender `json:"gender,omitempty"`
	DateOfBirth  *Date  `json:"dateOfBirth,omitempty"`
	Age          *int   `json:"age,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Education    string `json:"education,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	BloodGroup   string `json:"bloodGroup,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	Email        string `json:"email,omitempty"`
	BaptismDate  *Date  `json:"baptismDate,omitempty"`
	MarriageDate *Date  `json:"marriageDate,omitempty"`
}

// FamilyFilter narrows family listings.
type FamilyFilter struct {
	ParishUnit string
	Search     string
	ActiveOnly bool
}
