package family

import "github.com/parishhub/parish/internal/model"

// Audience selects which projection of a family a reader receives.
type Audience string

const (
	AudienceAdmin  Audience = "admin"
	AudiencePublic Audience = "public"
)

const (
	maskMinLen = 10
	maskKeep   = 3
	maskToken  = "****"
)

// MaskPhone hides the middle of a phone number, keeping the first and last
// three ASCII digits. Inputs shorter than ten characters are returned
// unchanged; inputs with fewer than six ASCII digits are masked character by
// character.
func MaskPhone(phone string) string {
	chars := []rune(phone)
	if len(chars) < maskMinLen {
		return phone
	}
	digits := make([]rune, 0, len(chars))
	for _, r := range chars {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 2*maskKeep {
		digits = chars
	}
	return string(digits[:maskKeep]) + maskToken + string(digits[len(digits)-maskKeep:])
}

// View returns a copy of f shaped for the audience. The caller's record is
// never modified.
func View(f *model.FamilyUnit, audience Audience) *model.FamilyUnit {
	if f == nil {
		return nil
	}
	out := clone(f)
	out.PasswordHash = ""
	if audience == AudienceAdmin {
		return out
	}
	out.Phone = MaskPhone(out.Phone)
	for i := range out.Members {
		out.Members[i].Mobile = MaskPhone(out.Members[i].Mobile)
	}
	return out
}

// ViewAll applies View to every family.
func ViewAll(families []model.FamilyUnit, audience Audience) []model.FamilyUnit {
	out := make([]model.FamilyUnit, 0, len(families))
	for i := range families {
		out = append(out, *View(&families[i], audience))
	}
	return out
}

func clone(f *model.FamilyUnit) *model.FamilyUnit {
	out := *f
	out.DateOfBirth = copyDate(f.DateOfBirth)
	out.Age = copyInt(f.Age)
	out.Members = make([]model.Member, len(f.Members))
	for i, m := range f.Members {
		m.DateOfBirth = copyDate(m.DateOfBirth)
		m.Age = copyInt(m.Age)
		m.BaptismDate = copyDate(m.BaptismDate)
		m.MarriageDate = copyDate(m.MarriageDate)
		out.Members[i] = m
	}
	return &out
}

func copyDate(d *model.Date) *model.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
