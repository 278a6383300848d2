package attendance

import (
	"math"
	"time"

	"staffhub/models"
)

const (
	normalCap = 8  // hours per day paid at the normal rate
	doubleCap = 12 // hours beyond this are double overtime
)

// EntryHours returns the worked hours of one assignment. An entry
// missing either check-in or check-out counts as zero, and a recorded
// break is subtracted when both of its timestamps are present. Negative
// results from ill-ordered timestamps clamp to zero.
func EntryHours(a models.Assignment) float64 {
	if a.CheckIn == nil || a.CheckOut == nil {
		return 0
	}
	d := a.CheckOut.Sub(*a.CheckIn)
	if a.BreakTimeStart != nil && a.BreakTimeEnd != nil {
		d -= a.BreakTimeEnd.Sub(*a.BreakTimeStart)
	}
	if d < 0 {
		return 0
	}
	return d.Hours()
}

// SplitHours buckets a total into normal (first 8), overtime (8-12) and
// double overtime (beyond 12) hours.
func SplitHours(total float64) (normal, overtime, double float64) {
	switch {
	case total <= normalCap:
		return total, 0, 0
	case total <= doubleCap:
		return normalCap, total - normalCap, 0
	default:
		return normalCap, doubleCap - normalCap, total - doubleCap
	}
}

// Round2 rounds to two decimals for presentation. Accumulation always
// sums unrounded values and rounds only the final totals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Totals accumulates the three-tier split across entries.
type Totals struct {
	TotalHours          float64 `json:"totalHours"`
	NormalHours         float64 `json:"normalHours"`
	OvertimeHours       float64 `json:"overtimeHours"`
	DoubleOvertimeHours float64 `json:"doubleOvertimeHours"`
}

func (t *Totals) Add(hours float64) {
	n, o, d := SplitHours(hours)
	t.TotalHours += hours
	t.NormalHours += n
	t.OvertimeHours += o
	t.DoubleOvertimeHours += d
}

func (t Totals) Rounded() Totals {
	return Totals{
		TotalHours:          Round2(t.TotalHours),
		NormalHours:         Round2(t.NormalHours),
		OvertimeHours:       Round2(t.OvertimeHours),
		DoubleOvertimeHours: Round2(t.DoubleOvertimeHours),
	}
}

// DayHours is the simplified two-tier split used by the per-day
// breakdown of the self summary. It deliberately has no double-overtime
// tier; only entry-level and per-employee views report three tiers.
type DayHours struct {
	RegularHours  float64 `json:"regularHours"`
	OvertimeHours float64 `json:"overtimeHours"`
}

// DailyBreakdown groups entries by the calendar day of their check-in
// and splits each day's hours at the 8-hour mark. Incomplete entries are
// skipped.
func DailyBreakdown(entries []models.Assignment) map[string]DayHours {
	accum := make(map[string]DayHours)
	for _, e := range entries {
		if e.CheckIn == nil {
			continue
		}
		h := EntryHours(e)
		if h == 0 {
			continue
		}
		key := e.CheckIn.Format("2006-01-02")
		day := accum[key]
		day.RegularHours += math.Min(h, normalCap)
		day.OvertimeHours += math.Max(h-normalCap, 0)
		accum[key] = day
	}

	for key, day := range accum {
		accum[key] = DayHours{
			RegularHours:  Round2(day.RegularHours),
			OvertimeHours: Round2(day.OvertimeHours),
		}
	}
	return accum
}

// WeekWindow returns the Monday-to-Monday window containing now, in
// now's location: [Monday 00:00, next Monday 00:00).
func WeekWindow(now time.Time) (start, end time.Time) {
	sinceMonday := (int(now.Weekday()) + 6) % 7
	start = startOfDay(now).AddDate(0, 0, -sinceMonday)
	return start, start.AddDate(0, 0, 7)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
