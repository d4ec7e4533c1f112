package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// transition is a change of UTC offset inside a zone.
type transition struct {
	at         time.Time
	fromName   string
	fromOffset int
	toName     string
	toOffset   int
	dst        bool
}

// VTimezone renders a VTIMEZONE block for loc. The yearly rules are derived
// from the zone's transitions in refYear and anchored in 1970.
func VTimezone(loc *time.Location, refYear int) (string, error) {
	if loc == nil {
		return "", fmt.Errorf("vtimezone: nil location")
	}

	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, loc.String())
	tz.Props.SetText("X-LIC-LOCATION", loc.String())

	daylight, standard, ok := yearlyTransitions(loc, refYear)
	if ok {
		tz.Children = append(tz.Children,
			observance(ical.CompTimezoneDaylight, daylight),
			observance(ical.CompTimezoneStandard, standard),
		)
	} else {
		// No DST in refYear: a single STANDARD observance from the epoch.
		ref := time.Date(refYear, time.July, 1, 0, 0, 0, 0, loc)
		name, offset := ref.Zone()
		std := ical.NewComponent(ical.CompTimezoneStandard)
		std.Props.Set(&ical.Prop{Name: ical.PropTimezoneOffsetFrom, Value: formatOffset(offset)})
		std.Props.Set(&ical.Prop{Name: ical.PropTimezoneOffsetTo, Value: formatOffset(offset)})
		std.Props.SetText(ical.PropTimezoneName, name)
		std.Props.Set(&ical.Prop{Name: ical.PropDateTimeStart, Value: "19700101T000000"})
		tz.Children = append(tz.Children, std)
	}

	// The encoder only accepts whole calendars, so wrap and cut the block out.
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//SyllabAI//Timezone//EN")
	cal.Children = append(cal.Children, tz)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode vtimezone: %w", err)
	}
	out := buf.String()
	start := strings.Index(out, "BEGIN:"+ical.CompTimezone)
	endMarker := "END:" + ical.CompTimezone + "\r\n"
	end := strings.LastIndex(out, endMarker)
	if start < 0 || end < start {
		return "", fmt.Errorf("encode vtimezone: block not found in output")
	}
	return out[start : end+len(endMarker)], nil
}

// yearlyTransitions returns the last DST onset and the last DST end in year.
func yearlyTransitions(loc *time.Location, year int) (daylight, standard transition, ok bool) {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	limit := time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)

	var haveDST, haveSTD bool
	for i := 0; i < 8; i++ {
		_, next := t.ZoneBounds()
		if next.IsZero() || !next.Before(limit) {
			break
		}
		fromName, fromOffset := next.Add(-time.Second).Zone()
		toName, toOffset := next.Zone()
		tr := transition{
			at:         next,
			fromName:   fromName,
			fromOffset: fromOffset,
			toName:     toName,
			toOffset:   toOffset,
			dst:        next.IsDST(),
		}
		if tr.dst {
			daylight, haveDST = tr, true
		} else {
			standard, haveSTD = tr, true
		}
		t = next
	}
	return daylight, standard, haveDST && haveSTD
}

func observance(name string, tr transition) *ical.Component {
	// Onset expressed in the wall time that was in effect before it.
	wall := tr.at.In(time.FixedZone(tr.fromName, tr.fromOffset))
	month := wall.Month()
	nth := (wall.Day()-1)/7 + 1
	if wall.Day()+7 > daysIn(month, wall.Year()) {
		nth = -1
	}
	byday := rruleWeekdays[wall.Weekday()].Nth(nth)

	first := wall
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.YEARLY,
		Dtstart:   time.Date(1970, time.January, 1, wall.Hour(), wall.Minute(), wall.Second(), 0, time.UTC),
		Bymonth:   []int{int(month)},
		Byweekday: []rrule.Weekday{byday},
		Count:     1,
	})
	if err == nil {
		if all := rule.All(); len(all) > 0 {
			first = all[0]
		}
	}
	opt := rrule.ROption{
		Freq:      rrule.YEARLY,
		Bymonth:   []int{int(month)},
		Byweekday: []rrule.Weekday{byday},
	}

	comp := ical.NewComponent(name)
	comp.Props.Set(&ical.Prop{Name: ical.PropTimezoneOffsetFrom, Value: formatOffset(tr.fromOffset)})
	comp.Props.Set(&ical.Prop{Name: ical.PropTimezoneOffsetTo, Value: formatOffset(tr.toOffset)})
	comp.Props.SetText(ical.PropTimezoneName, tr.toName)
	comp.Props.Set(&ical.Prop{Name: ical.PropDateTimeStart, Value: first.Format(floatingLayout)})
	comp.Props.Set(&ical.Prop{Name: ical.PropRecurrenceRule, Value: opt.RRuleString()})
	return comp
}

func formatOffset(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	mins := secs / 60
	return fmt.Sprintf("%c%02d%02d", sign, mins/60, mins%60)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
