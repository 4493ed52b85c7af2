package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// ParseEvents decodes an ICS document and returns its VEVENT components.
// Floating times are interpreted in loc, and so are times whose TZID
// cannot be resolved.
// Events without a usable DTSTART are skipped.
func ParseEvents(data []byte, loc *time.Location) ([]Event, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	zones := newZoneTable(cal)
	var events []Event
	for _, ev := range cal.Events() {
		start, err := zones.propTime(ev.Props, ical.PropDateTimeStart, loc)
		if err != nil || start.IsZero() {
			continue
		}
		end := eventEnd(ev, zones, start, loc)

		e := Event{
			Summary:     propText(ev.Props, ical.PropSummary),
			Start:       start,
			End:         end,
			Location:    propText(ev.Props, ical.PropLocation),
			Description: propText(ev.Props, ical.PropDescription),
			UID:         propText(ev.Props, ical.PropUID),
		}
		if e.Location == "" {
			e.Location = DefaultLocation
		}
		if p := ev.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
			e.AllDay = true
		}
		events = append(events, e)
	}
	return events, nil
}

func eventEnd(ev ical.Event, zones zoneTable, start time.Time, loc *time.Location) time.Time {
	if ev.Props.Get(ical.PropDateTimeEnd) != nil {
		end, err := zones.propTime(ev.Props, ical.PropDateTimeEnd, loc)
		if err != nil {
			return time.Time{}
		}
		return end
	}
	if p := ev.Props.Get(ical.PropDuration); p != nil {
		if d, err := p.Duration(); err == nil {
			return start.Add(d)
		}
	}
	if p := ev.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
		return start.Add(24 * time.Hour)
	}
	return start
}

func propText(props ical.Props, name string) string {
	s, err := props.Text(name)
	if err != nil {
		return ""
	}
	return s
}
