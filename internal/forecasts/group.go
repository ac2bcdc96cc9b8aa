// Package forecasts shapes upstream forecast data for display: it buckets the
// flat 3-hourly entry list into calendar days and exposes the combined
// lookup used by the JSON API.
package forecasts

import (
	"time"

	"sunforecast/internal/types"
)

// MaxDays is the number of calendar days kept by GroupByDay. The upstream feed
// covers 5 days of 3-hour steps, which can straddle a sixth partial day.
const MaxDays = 5

// GroupByDay partitions entries by the calendar date of their timestamp in
// loc. Groups appear in the order their date is first encountered and each
// group keeps the source order of its entries. Only the first MaxDays dates
// are kept; entries of later dates are dropped.
//
// The result is never nil. A nil loc is treated as UTC.
func GroupByDay(entries []types.ForecastEntry, loc *time.Location) []types.DayGroup {
	if loc == nil {
		loc = time.UTC
	}

	groups := make([]types.DayGroup, 0, MaxDays)
	index := make(map[types.CivilDate]int, MaxDays)

	for _, e := range entries {
		date := types.DateOf(e.Timestamp(loc))

		i, seen := index[date]
		if !seen {
			if len(groups) == MaxDays {
				continue
			}
			i = len(groups)
			index[date] = i
			groups = append(groups, types.DayGroup{Date: date})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	return groups
}
