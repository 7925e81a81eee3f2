// Package family holds the pure rules of the family register: age derivation
// and the audience-specific views of a family record.
package family

import (
	"time"

	"github.com/parishhub/parish/internal/model"
)

// Age returns the completed years between birth and now. The result is one
// less than the calendar-year difference while now's (month, day) is still
// before the birthday.
func Age(birth model.Date, now time.Time) int {
	y, m, d := now.Date()
	age := y - birth.Year
	if m < birth.Month || (m == birth.Month && d < birth.Day) {
		age--
	}
	return age
}

// RecomputeAges overwrites the head's and every member's age from their birth
// dates. Entities without a birth date keep whatever age they had.
func RecomputeAges(f *model.FamilyUnit, now time.Time) {
	if f.DateOfBirth != nil {
		a := Age(*f.DateOfBirth, now)
		f.Age = &a
	}
	for i := range f.Members {
		m := &f.Members[i]
		if m.DateOfBirth == nil {
			continue
		}
		a := Age(*m.DateOfBirth, now)
		m.Age = &a
	}
}
