package calendar

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/emersion/go-ical"
)

const floatingFormat = "20060102T150405"

// windowsZones maps Windows time zone names, as written by Outlook and
// Exchange feeds, to IANA locations.
var windowsZones = map[string]string{
	"AUS Eastern Standard Time":       "Australia/Sydney",
	"AUS Central Standard Time":       "Australia/Darwin",
	"E. Australia Standard Time":      "Australia/Brisbane",
	"Cen. Australia Standard Time":    "Australia/Adelaide",
	"W. Australia Standard Time":      "Australia/Perth",
	"Tasmania Standard Time":          "Australia/Hobart",
	"New Zealand Standard Time":       "Pacific/Auckland",
	"UTC":                             "UTC",
	"GMT Standard Time":               "Europe/London",
	"W. Europe Standard Time":         "Europe/Berlin",
	"Romance Standard Time":           "Europe/Paris",
	"Eastern Standard Time":           "America/New_York",
	"Central Standard Time":           "America/Chicago",
	"Mountain Standard Time":          "America/Denver",
	"Pacific Standard Time":           "America/Los_Angeles",
	"China Standard Time":             "Asia/Shanghai",
	"Tokyo Standard Time":             "Asia/Tokyo",
	"Singapore Standard Time":         "Asia/Singapore",
	"India Standard Time":             "Asia/Kolkata",
	"Greenwich Standard Time":         "Atlantic/Reykjavik",
	"Central European Standard Time":  "Europe/Warsaw",
	"Central Europe Standard Time":    "Europe/Budapest",
	"Atlantic Standard Time":          "America/Halifax",
	"SE Asia Standard Time":           "Asia/Bangkok",
	"Korea Standard Time":             "Asia/Seoul",
	"Arabian Standard Time":           "Asia/Dubai",
	"South Africa Standard Time":      "Africa/Johannesburg",
	"Hawaiian Standard Time":          "Pacific/Honolulu",
	"Alaskan Standard Time":           "America/Anchorage",
	"US Mountain Standard Time":       "America/Phoenix",
	"Canada Central Standard Time":    "America/Regina",
	"E. South America Standard Time":  "America/Sao_Paulo",
	"Russian Standard Time":           "Europe/Moscow",
	"FLE Standard Time":               "Europe/Kiev",
	"GTB Standard Time":               "Europe/Bucharest",
	"Israel Standard Time":            "Asia/Jerusalem",
	"Fiji Standard Time":              "Pacific/Fiji",
	"West Pacific Standard Time":      "Pacific/Port_Moresby",
	"Lord Howe Standard Time":         "Australia/Lord_Howe",
	"Aus Central W. Standard Time":    "Australia/Eucla",
	"Norfolk Standard Time":           "Pacific/Norfolk",
	"Taipei Standard Time":            "Asia/Taipei",
	"Philippines Standard Time":       "Asia/Manila",
	"Malay Peninsula Standard Time":   "Asia/Kuala_Lumpur",
	"North Asia East Standard Time":   "Asia/Irkutsk",
	"Pacific SA Standard Time":        "America/Santiago",
	"Argentina Standard Time":         "America/Buenos_Aires",
	"Mexico Standard Time":            "America/Mexico_City",
	"Central America Standard Time":   "America/Guatemala",
	"SA Pacific Standard Time":        "America/Bogota",
	"Venezuela Standard Time":         "America/Caracas",
	"Newfoundland Standard Time":      "America/St_Johns",
	"Azores Standard Time":            "Atlantic/Azores",
	"Morocco Standard Time":           "Africa/Casablanca",
	"Egypt Standard Time":             "Africa/Cairo",
	"E. Africa Standard Time":         "Africa/Nairobi",
	"Pakistan Standard Time":          "Asia/Karachi",
	"Bangladesh Standard Time":        "Asia/Dhaka",
	"Nepal Standard Time":             "Asia/Kathmandu",
	"Myanmar Standard Time":           "Asia/Yangon",
	"Tonga Standard Time":             "Pacific/Tongatapu",
	"Samoa Standard Time":             "Pacific/Apia",
	"Dateline Standard Time":          "Etc/GMT+12",
	"UTC+12":                          "Etc/GMT-12",
	"Central Pacific Standard Time":   "Pacific/Guadalcanal",
	"Vladivostok Standard Time":       "Asia/Vladivostok",
	"Yakutsk Standard Time":           "Asia/Yakutsk",
	"Arab Standard Time":              "Asia/Riyadh",
	"Iran Standard Time":              "Asia/Tehran",
	"Turkey Standard Time":            "Europe/Istanbul",
	"W. Central Africa Standard Time": "Africa/Lagos",
}

// observance is one STANDARD or DAYLIGHT block of a VTIMEZONE.
type observance struct {
	comp   *ical.Component
	onset  time.Time
	offset int
}

// zoneTable resolves TZID parameters that are not IANA names, using the
// VTIMEZONE definitions carried by the feed.
type zoneTable map[string][]observance

func newZoneTable(cal *ical.Calendar) zoneTable {
	zones := zoneTable{}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		tzid := propText(child.Props, ical.PropTimezoneID)
		if tzid == "" {
			continue
		}
		for _, sub := range child.Children {
			if sub.Name != ical.CompTimezoneStandard && sub.Name != ical.CompTimezoneDaylight {
				continue
			}
			p := sub.Props.Get(ical.PropTimezoneOffsetTo)
			if p == nil {
				continue
			}
			offset, err := parseUTCOffset(p.Value)
			if err != nil {
				continue
			}
			onset, err := sub.Props.DateTime(ical.PropDateTimeStart, time.UTC)
			if err != nil {
				onset = time.Time{}
			}
			zones[tzid] = append(zones[tzid], observance{comp: sub, onset: onset, offset: offset})
		}
	}
	return zones
}

// propTime reads a DATE or DATE-TIME property. A TZID that is not an IANA
// name is resolved through the feed's VTIMEZONE blocks before the Windows
// name table. Anything else is floating time in loc.
func (z zoneTable) propTime(props ical.Props, name string, loc *time.Location) (time.Time, error) {
	p := props.Get(name)
	if p == nil {
		return time.Time{}, nil
	}
	t, err := p.DateTime(loc)
	if err == nil {
		return t, nil
	}
	tzid := p.Params.Get(ical.PropTimezoneID)
	if tzid == "" {
		return time.Time{}, err
	}
	wall, perr := time.ParseInLocation(floatingFormat, p.Value, time.UTC)
	if perr != nil {
		return time.Time{}, err
	}
	return inZone(wall, z.location(tzid, wall, loc)), nil
}

func (z zoneTable) location(tzid string, wall time.Time, loc *time.Location) *time.Location {
	if obs := z[tzid]; len(obs) > 0 {
		return time.FixedZone(tzid, activeOffset(obs, wall))
	}
	if name, ok := windowsZones[tzid]; ok {
		if l, err := time.LoadLocation(name); err == nil {
			return l
		}
	}
	if loc == nil {
		return time.UTC
	}
	return loc
}

// activeOffset returns the TZOFFSETTO of the observance whose most recent
// onset precedes wall. Recurring observances are expanded with their RRULE.
func activeOffset(obs []observance, wall time.Time) int {
	best := obs[0]
	var bestOnset time.Time
	for _, o := range obs {
		onset := o.onset
		if set, err := o.comp.RecurrenceSet(time.UTC); err == nil && set != nil {
			onset = set.Before(wall, true)
		}
		if onset.IsZero() || onset.After(wall) {
			continue
		}
		if bestOnset.IsZero() || onset.After(bestOnset) {
			best, bestOnset = o, onset
		}
	}
	return best.offset
}

func inZone(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

// parseUTCOffset reads a UTC-OFFSET value such as +1000, -0530 or +103000.
func parseUTCOffset(v string) (int, error) {
	if len(v) != 5 && len(v) != 7 {
		return 0, fmt.Errorf("invalid UTC offset %q", v)
	}
	sign := 1
	switch v[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid UTC offset %q", v)
	}
	parts := []string{v[1:3], v[3:5]}
	if len(v) == 7 {
		parts = append(parts, v[5:7])
	}
	secs := 0
	for i, unit := range []int{3600, 60, 1} {
		if i >= len(parts) {
			break
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("invalid UTC offset %q", v)
		}
		secs += n * unit
	}
	return sign * secs, nil
}
