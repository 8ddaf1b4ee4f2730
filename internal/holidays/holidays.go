package holidays

import (
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// Calendar answers whether a given date is a public holiday.
type Calendar interface {
	IsHoliday(date time.Time) bool
}

type regionCalendar struct {
	cal *cal.BusinessCalendar
}

// NewCalendar returns a holiday calendar for the given region code.
// Unknown regions fall back to US holidays.
func NewCalendar(region string) Calendar {
	c := cal.NewBusinessCalendar()
	switch strings.ToUpper(region) {
	case "GB":
		c.AddHoliday(gb.Holidays...)
	case "CA":
		c.AddHoliday(ca.Holidays...)
	default:
		c.AddHoliday(us.Holidays...)
	}
	return &regionCalendar{cal: c}
}

func (r *regionCalendar) IsHoliday(date time.Time) bool {
	_, observed, _ := r.cal.IsHoliday(date)
	return observed
}

// None is a calendar with no holidays.
type None struct{}

func (None) IsHoliday(time.Time) bool { return false }
