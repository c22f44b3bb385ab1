package chat

import "time"

// DayGroup is a contiguous run of messages sharing a local calendar date.
type DayGroup struct {
	Date     time.Time
	Messages []Message
}

// GroupByDay splits a timeline into date-separated display groups in a
// single pass. Only contiguous runs group together: if the timeline ever
// revisits a date non-contiguously, that run starts a new group rather
// than merging backwards.
func GroupByDay(msgs []Message, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DayGroup
	for _, m := range msgs {
		local := m.SentAt.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, DayGroup{Date: day, Messages: []Message{m}})
	}
	return groups
}

// DayLabel renders a group date the way the message view titles it.
func DayLabel(day time.Time, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, day.Location())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Monday, Jan 2")
	}
}
