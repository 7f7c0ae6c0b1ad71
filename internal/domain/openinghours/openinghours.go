// Package openinghours evaluates the compact OSM opening_hours subset used by
// the POI catalog: "Mo-Fr 09:00-17:00; Sa 10:00-14:00".
//
// Supported entry grammar is exactly "<days> <HH:MM-HH:MM>[,HH:MM-HH:MM...]"
// where <days> is a two-letter weekday or an inclusive Mo..Su range. Anything
// else is skipped.
// Ranges that wrap the week boundary (Sa-Mo) never match.
package openinghours

import (
	"strings"
	"time"
)

// RuleKey is the tag holding the rule inside a raw tag blob.
const RuleKey = "opening_hours"

const clockLayout = "15:04"

var weekdayCodes = [...]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

type span struct {
	opens  string
	closes string
}

type entry struct {
	firstDay int
	lastDay  int
	spans    []span
}

func (e entry) matches(day int, clock string) bool {
	if day < e.firstDay || day > e.lastDay {
		return false
	}
	for _, sp := range e.spans {
		if sp.opens <= clock && clock <= sp.closes {
			return true
		}
	}
	return false
}

// IsOpenNow reports whether any entry of rule covers at. Both time bounds are
// inclusive. An empty rule or one without a usable entry is closed.
func IsOpenNow(rule string, at time.Time) bool {
	day := WeekdayIndex(at)
	clock := at.Format(clockLayout)

	for _, raw := range strings.Split(rule, ";") {
		e, ok := parseEntry(strings.TrimSpace(raw))
		if !ok {
			continue
		}
		if e.matches(day, clock) {
			return true
		}
	}
	return false
}

// IsOpen extracts the rule from a raw tag blob and evaluates it. A blob
// without an opening_hours tag is closed.
func IsOpen(rawTags string, at time.Time) bool {
	rule, ok := ExtractRule(rawTags)
	if !ok {
		return false
	}
	return IsOpenNow(rule, at)
}

// WeekdayIndex returns the weekday of t with Monday=0.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func parseEntry(s string) (entry, bool) {
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return entry{}, false
	}

	var e entry
	days := strings.Split(parts[0], "-")
	switch len(days) {
	case 1:
		d, ok := dayIndex(days[0])
		if !ok {
			return entry{}, false
		}
		e.firstDay, e.lastDay = d, d
	case 2:
		first, ok1 := dayIndex(days[0])
		last, ok2 := dayIndex(days[1])
		if !ok1 || !ok2 {
			return entry{}, false
		}
		e.firstDay, e.lastDay = first, last
	default:
		return entry{}, false
	}

	for _, r := range strings.Split(parts[1], ",") {
		times := strings.Split(r, "-")
		if len(times) != 2 {
			return entry{}, false
		}
		e.spans = append(e.spans, span{opens: times[0], closes: times[1]})
	}
	return e, true
}

func dayIndex(code string) (int, bool) {
	for i, c := range weekdayCodes {
		if c == code {
			return i, true
		}
	}
	return 0, false
}
