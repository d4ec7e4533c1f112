package ical

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
)

// DefaultHorizonMonths bounds weekly expansion, counted from the event start.
const DefaultHorizonMonths = 3

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Expander turns RawEvents into concrete occurrences. It holds no state
// between calls and is safe for concurrent use.
type Expander struct {
	horizonMonths int
	logger        zerolog.Logger
}

func NewExpander(horizonMonths int, logger zerolog.Logger) *Expander {
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	return &Expander{
		horizonMonths: horizonMonths,
		logger:        logger.With().Str("component", "expander").Logger(),
	}
}

// ExpandAll expands every event. A bad event never affects the others.
func (e *Expander) ExpandAll(events []RawEvent) ExpandReport {
	report := ExpandReport{Total: len(events)}
	for _, ev := range events {
		res := e.Expand(ev)
		if len(res.Occurrences) > 0 {
			report.Expanded++
		}
		report.Occurrences = append(report.Occurrences, res.Occurrences...)
		report.Skips = append(report.Skips, res.Skips...)
	}
	return report
}

// Expand returns the occurrences of a single event. Non-recurring events
// yield one occurrence; weekly ones yield one per matching weekday per week
// up to and including the horizon.
func (e *Expander) Expand(ev RawEvent) ExpandResult {
	var res ExpandResult
	title := ev.title()

	start, err := ParseLocalDateTime(ev.Start)
	if err != nil {
		e.skip(&res, Skip{Event: title, Reason: SkipInvalidStart, Detail: err.Error()})
		return res
	}

	rec, clauseSkips := ParseRecurrence(ev.Recurrence)

	if rec.Kind == RecurrenceNone {
		end := start
		if strings.TrimSpace(ev.End) != "" {
			if parsed, err := ParseLocalDateTime(ev.End); err == nil {
				end = parsed
			} else {
				e.logger.Debug().Err(err).Str("event", title).Msg("end unparseable, using start")
			}
		}
		res.Occurrences = append(res.Occurrences, occurrenceOf(ev, title, start.Time(), end.Time()))
		return res
	}

	end := start
	if strings.TrimSpace(ev.End) != "" {
		end, err = ParseLocalDateTime(ev.End)
		if err != nil {
			e.skip(&res, Skip{Event: title, Reason: SkipInvalidEnd, Detail: err.Error()})
			return res
		}
	}

	for _, s := range clauseSkips {
		s.Event = title
		e.skip(&res, s)
	}

	base := start.Time()
	minutes := int(end.Time().Sub(base) / time.Minute)
	duration := time.Duration(minutes) * time.Minute
	horizon := base.AddDate(0, e.horizonMonths, 0)

	for _, wd := range rec.Weekdays {
		for _, anchor := range e.weeklyStarts(base, wd, horizon) {
			res.Occurrences = append(res.Occurrences, occurrenceOf(ev, title, anchor, anchor.Add(duration)))
		}
	}

	return res
}

// weeklyStarts lists every date on or after dtstart that falls on wd, at
// dtstart's time of day, up to and including until.
func (e *Expander) weeklyStarts(dtstart time.Time, wd time.Weekday, until time.Time) []time.Time {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Until:     until,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("weekday", wd.String()).Msg("failed to build weekly rule")
		return nil
	}
	return rule.All()
}

func (e *Expander) skip(res *ExpandResult, s Skip) {
	res.Skips = append(res.Skips, s)
	e.logger.Warn().
		Str("event", s.Event).
		Str("clause", s.Clause).
		Str("reason", string(s.Reason)).
		Str("detail", s.Detail).
		Msg("skipping")
}

func occurrenceOf(ev RawEvent, title string, start, end time.Time) Occurrence {
	return Occurrence{
		Title:       title,
		Start:       start,
		End:         end,
		Location:    strings.TrimSpace(ev.Location),
		Description: strings.TrimSpace(ev.Description),
	}
}
