package ical

import (
	"fmt"
	"strings"
)

const (
	calendarBegin = "BEGIN:VCALENDAR"
	calendarEnd   = "END:VCALENDAR"
)

var timedProps = []string{"DTSTART", "DTEND"}

// TagTimezone rewrites every untagged DTSTART/DTEND line outside VTIMEZONE
// blocks to carry ";TZID=<tzid>". Lines that already have parameters are left
// untouched.
func TagTimezone(doc, tzid string) string {
	lines := strings.SplitAfter(doc, "\n")
	var b strings.Builder
	b.Grow(len(doc) + 32*len(lines))

	inTZ := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "BEGIN:VTIMEZONE"):
			inTZ = true
		case strings.HasPrefix(line, "END:VTIMEZONE"):
			inTZ = false
		case !inTZ:
			for _, prop := range timedProps {
				if strings.HasPrefix(line, prop+":") {
					line = prop + ";TZID=" + tzid + line[len(prop):]
					break
				}
			}
		}
		b.WriteString(line)
	}
	return b.String()
}

// HasTimezoneTags reports whether every DTSTART/DTEND outside VTIMEZONE blocks
// carries a TZID parameter.
func HasTimezoneTags(doc string) bool {
	inTZ := false
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "BEGIN:VTIMEZONE"):
			inTZ = true
		case strings.HasPrefix(line, "END:VTIMEZONE"):
			inTZ = false
		case !inTZ:
			for _, prop := range timedProps {
				if !strings.HasPrefix(line, prop+":") && !strings.HasPrefix(line, prop+";") {
					continue
				}
				name, _, _ := strings.Cut(line, ":")
				if !strings.Contains(name, ";TZID=") {
					return false
				}
			}
		}
	}
	return true
}

// InjectTimezone inserts block ahead of the first component of the calendar,
// after its properties, or before END:VCALENDAR when it has no components.
func InjectTimezone(doc, block string) (string, error) {
	i := strings.Index(doc, calendarBegin)
	if i < 0 {
		return "", fmt.Errorf("inject timezone: %s not found", calendarBegin)
	}
	nl := strings.IndexByte(doc[i:], '\n')
	if nl < 0 {
		return "", fmt.Errorf("inject timezone: unterminated %s line", calendarBegin)
	}
	at := -1
	for pos := i + nl + 1; pos < len(doc); {
		line := doc[pos:]
		if strings.HasPrefix(line, "BEGIN:") || strings.HasPrefix(line, calendarEnd) {
			at = pos
			break
		}
		next := strings.IndexByte(line, '\n')
		if next < 0 {
			break
		}
		pos += next + 1
	}
	if at < 0 {
		return "", fmt.Errorf("inject timezone: %s not found", calendarEnd)
	}
	return doc[:at] + block + doc[at:], nil
}
