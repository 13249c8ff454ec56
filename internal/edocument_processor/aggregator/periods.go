package aggregator

import (
	"fmt"
	"time"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/shared"
)

// Period is an inclusive range of calendar days.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
}

// Previous returns the period of the same periodicity ending the day before p starts.
func (p Period) Previous(periodicity flow.Periodicity) Period {
	prev, _ := PeriodOf(periodicity, p.Start.AddDate(0, 0, -1))
	return prev
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastDay(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// span returns the period starting on the first day of (year, month) and
// covering months calendar months.
func span(year int, month time.Month, months int) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, months, -1)}
}

// PeriodOf returns the period of the given periodicity containing day.
//
// Bimonthly periods start on odd months. Decadal periods split a month into
// days 1-10, 11-20 and 21 to the end of the month. Yearly periods follow the
// Australian financial year, 1 July to 30 June.
func PeriodOf(periodicity flow.Periodicity, day time.Time) (Period, error) {
	d := dayOf(day)
	y, m := d.Year(), d.Month()
	switch periodicity {
	case flow.Monthly:
		return span(y, m, 1), nil
	case flow.Bimonthly:
		return span(y, m-(m-1)%2, 2), nil
	case flow.Quarterly:
		return span(y, 3*((m-1)/3)+1, 3), nil
	case flow.Decadal:
		switch {
		case d.Day() <= 10:
			return Period{Start: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), End: time.Date(y, m, 10, 0, 0, 0, 0, time.UTC)}, nil
		case d.Day() <= 20:
			return Period{Start: time.Date(y, m, 11, 0, 0, 0, 0, time.UTC), End: time.Date(y, m, 20, 0, 0, 0, 0, time.UTC)}, nil
		default:
			return Period{Start: time.Date(y, m, 21, 0, 0, 0, 0, time.UTC), End: time.Date(y, m, lastDay(y, m), 0, 0, 0, 0, time.UTC)}, nil
		}
	case flow.Yearly:
		if m < time.July {
			y--
		}
		return span(y, time.July, 12), nil
	}
	return Period{}, shared.NewError(shared.KindConfiguration, fmt.Sprintf("unknown periodicity %q", periodicity), nil)
}
