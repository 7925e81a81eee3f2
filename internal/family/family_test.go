package family

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/parishhub/parish/internal/model"
)

func day(s string) time.Time {
	return model.MustDate(s).Time()
}

func datePtr(s string) *model.Date {
	d := model.MustDate(s)
	return &d
}

func TestAge(t *testing.T) {
	tests := []struct {
		name  string
		birth string
		now   string
		want  int
	}{
		{"birthday not reached", "1975-05-15", "2024-05-01", 48},
		{"member before birthday", "2008-11-25", "2024-05-01", 15},
		{"day before birthday", "1990-06-10", "2024-06-09", 33},
		{"on birthday", "1990-06-10", "2024-06-10", 34},
		{"day after birthday", "1990-06-10", "2024-06-11", 34},
		{"born today", "2024-05-01", "2024-05-01", 0},
		{"leap day before feb 29 in leap year", "2000-02-29", "2024-02-28", 23},
		{"leap day in non-leap year on mar 1", "2000-02-29", "2023-03-01", 23},
		{"leap day in non-leap year on feb 28", "2000-02-29", "2023-02-28", 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Age(model.MustDate(tt.birth), day(tt.now)); got != tt.want {
				t.Errorf("Age(%s, %s) = %d, want %d", tt.birth, tt.now, got, tt.want)
			}
		})
	}
}

func TestAgeIgnoresTimeOfDay(t *testing.T) {
	birth := model.MustDate("1990-06-10")
	late := time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC)
	if got := Age(birth, late); got != 33 {
		t.Errorf("Age at 23:59 the day before = %d, want 33", got)
	}
}

func TestRecomputeAges(t *testing.T) {
	stale := 99
	f := &model.FamilyUnit{
		DateOfBirth: datePtr("1975-05-15"),
		Age:         &stale,
		Members: []model.Member{
			{ID: "a", Name: "Anna", DateOfBirth: datePtr("2008-11-25"), Age: &stale},
			{ID: "b", Name: "Ben", Age: &stale},
		},
	}

	RecomputeAges(f, day("2024-05-01"))

	if f.Age == nil || *f.Age != 48 {
		t.Errorf("head age = %v, want 48", f.Age)
	}
	if f.Members[0].Age == nil || *f.Members[0].Age != 15 {
		t.Errorf("member age = %v, want 15", f.Members[0].Age)
	}
	if f.Members[1].Age == nil || *f.Members[1].Age != 99 {
		t.Errorf("member without birth date age = %v, want untouched 99", f.Members[1].Age)
	}
}

func TestRecomputeAgesNoBirthDate(t *testing.T) {
	f := &model.FamilyUnit{}
	RecomputeAges(f, day("2024-05-01"))
	if f.Age != nil {
		t.Errorf("age = %d, want nil", *f.Age)
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "987****210"},
		{"+91 98765 43210", "919****210"},
		{"987-654-3210", "987****210"},
		{"123456789", "123456789"},
		{"", ""},
		{"abcdefghij", "abc****hij"},
		{"٩٨٧٦٥٤٣٢١٠", "٩٨٧****٢١٠"},
		{"+٩١ 98765 43210", "987****210"},
		{"٩٨٧٦٥", "٩٨٧٦٥"},
	}
	for _, tt := range tests {
		got := MaskPhone(tt.in)
		if got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("MaskPhone(%q) = %q is not valid UTF-8", tt.in, got)
		}
	}
}

func TestMaskPhoneHidesMiddleDigits(t *testing.T) {
	phone := "9876543210"
	got := MaskPhone(phone)
	if strings.Contains(got, "6543") {
		t.Errorf("MaskPhone(%q) = %q exposes middle digits", phone, got)
	}
	if !strings.HasPrefix(got, "987") || !strings.HasSuffix(got, "210") {
		t.Errorf("MaskPhone(%q) = %q, want first and last three kept", phone, got)
	}
}

func sampleFamily() *model.FamilyUnit {
	return &model.FamilyUnit{
		ID:           1,
		FamilyName:   "Puthenpurackal",
		HeadOfFamily: "Joseph",
		DateOfBirth:  datePtr("1975-05-15"),
		Phone:        "9876543210",
		WhatsApp:     "9876543210",
		PasswordHash: "$2a$10$secret",
		Active:       true,
		Members: []model.Member{
			{ID: "m1", Name: "Mary", Mobile: "9123456780", DateOfBirth: datePtr("1980-01-02")},
			{ID: "m2", Name: "Anna", Mobile: "12345"},
		},
	}
}

func TestViewPublic(t *testing.T) {
	f := sampleFamily()
	v := View(f, AudiencePublic)

	if v.Phone != "987****210" {
		t.Errorf("phone = %q, want %q", v.Phone, "987****210")
	}
	if v.Members[0].Mobile != "912****780" {
		t.Errorf("member mobile = %q, want %q", v.Members[0].Mobile, "912****780")
	}
	if v.Members[1].Mobile != "12345" {
		t.Errorf("short mobile = %q, want unchanged", v.Members[1].Mobile)
	}
	if v.PasswordHash != "" {
		t.Error("public view kept password hash")
	}
	if v.FamilyName != f.FamilyName || v.HeadOfFamily != f.HeadOfFamily || v.WhatsApp != f.WhatsApp {
		t.Error("public view altered unrelated fields")
	}

	// Source record is untouched.
	if f.Phone != "9876543210" || f.Members[0].Mobile != "9123456780" {
		t.Error("View mutated its input")
	}
	v.Members[0].DateOfBirth.Year = 1900
	if f.Members[0].DateOfBirth.Year != 1980 {
		t.Error("View shares member dates with its input")
	}
}

func TestViewAdmin(t *testing.T) {
	f := sampleFamily()
	v := View(f, AudienceAdmin)
	if v.Phone != f.Phone || v.Members[0].Mobile != f.Members[0].Mobile {
		t.Error("admin view masked phone numbers")
	}
	if v.PasswordHash != "" {
		t.Error("admin view kept password hash")
	}
}

func TestViewJSONOmitsPassword(t *testing.T) {
	f := sampleFamily()
	for _, aud := range []Audience{AudienceAdmin, AudiencePublic} {
		data, err := json.Marshal(View(f, aud))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(data), "password") || strings.Contains(string(data), "secret") {
			t.Errorf("%s view JSON leaks password: %s", aud, data)
		}
	}
}

func TestViewAll(t *testing.T) {
	families := []model.FamilyUnit{*sampleFamily(), *sampleFamily()}
	families[1].Phone = "9000000001"

	got := ViewAll(families, AudiencePublic)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Phone != "900****001" {
		t.Errorf("phone = %q, want %q", got[1].Phone, "900****001")
	}
	if families[1].Phone != "9000000001" {
		t.Error("ViewAll mutated its input")
	}
}

func TestViewNil(t *testing.T) {
	if View(nil, AudiencePublic) != nil {
		t.Error("View(nil) should be nil")
	}
}
