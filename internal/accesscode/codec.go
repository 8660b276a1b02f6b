package accesscode

import (
	"fmt"
	"strconv"
	"time"
)

// Codec encodes and decodes the codes of one family for a single
// deployment year.
//
// A timestamp field is 12 ASCII digits: minute, hour, day of month and
// month index as two digits each, then a four-digit year. The month index
// is zero-based (00 = January), matching the codes already in circulation.
// Encode and Decode use the same order.
type Codec struct {
	Family   Family
	Year     int
	Location *time.Location
}

// New creates a Codec. A nil loc means time.Local.
func New(f Family, year int, loc *time.Location) *Codec {
	if loc == nil {
		loc = time.Local
	}
	return &Codec{Family: f, Year: year, Location: loc}
}

// Encode renders the window [start, end] and tag as a code. Times are
// truncated to the minute in the codec's location. Both times must fall in
// the deployment year and start must not be after end.
func (c *Codec) Encode(start, end time.Time, tag Tag) (string, error) {
	suffix, ok := c.Family.Suffixes[tag]
	if !ok {
		return "", fmt.Errorf("%w %q for %s codes", ErrUnknownTag, tag, c.Family.Name)
	}

	start = c.truncate(start)
	end = c.truncate(end)
	if start.After(end) {
		return "", fmt.Errorf("%w: start %s after end %s", ErrInvalidDates, start, end)
	}
	for _, t := range []time.Time{start, end} {
		if t.Year() != c.Year {
			return "", fmt.Errorf("%w: year %d outside deployment year %d", ErrInvalidDates, t.Year(), c.Year)
		}
	}

	return c.Family.Prefix + encodeField(start) + encodeField(end) + suffix, nil
}

// Decode classifies candidate against its structure, its timestamp fields
// and the time now. Exactly one Status applies.
func (c *Codec) Decode(candidate string, now time.Time) Result {
	tag, ok := c.checkStructure(candidate)
	if !ok {
		return Result{Status: StatusMalformed}
	}

	res := Result{Family: c.Family.Name, Tag: tag}

	body := candidate[prefixLen : prefixLen+bodyLen]
	start, okStart := c.decodeField(body[:fieldLen])
	end, okEnd := c.decodeField(body[fieldLen:])
	if !okStart || !okEnd || start.After(end) {
		res.Status = StatusInvalidDates
		return res
	}

	res.Start = start
	res.End = end
	switch {
	case now.Before(start):
		res.Status = StatusNotYetValid
	case now.After(end):
		res.Status = StatusExpired
	default:
		res.Status = StatusValid
	}
	return res
}

// checkStructure verifies length, prefix, suffix and the digit-only body.
func (c *Codec) checkStructure(candidate string) (Tag, bool) {
	tag, suffix, ok := c.Family.matchSuffix(candidate)
	if !ok {
		return "", false
	}
	if len(candidate) != prefixLen+bodyLen+len(suffix) {
		return "", false
	}
	if candidate[:prefixLen] != c.Family.Prefix {
		return "", false
	}
	if !allDigits(candidate[:len(candidate)-len(suffix)]) {
		return "", false
	}
	return tag, true
}

func (c *Codec) truncate(t time.Time) time.Time {
	return t.In(c.Location).Truncate(time.Minute)
}

func encodeField(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d%02d%04d",
		t.Minute(), t.Hour(), t.Day(), int(t.Month())-1, t.Year())
}

// decodeField parses a 12-digit field, rejecting out-of-range parts, any
// year other than the deployment year, and dates that do not exist.
func (c *Codec) decodeField(field string) (time.Time, bool) {
	minute, _ := strconv.Atoi(field[0:2])
	hour, _ := strconv.Atoi(field[2:4])
	day, _ := strconv.Atoi(field[4:6])
	month, _ := strconv.Atoi(field[6:8])
	year, _ := strconv.Atoi(field[8:12])

	if year != c.Year || month > 11 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month+1), day, hour, minute, 0, 0, c.Location)
	// time.Date normalizes overflow (Feb 30 -> Mar 2) and DST gaps; reject those.
	if t.Year() != year || int(t.Month()) != month+1 || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, false
	}
	return t, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DecodeAny decodes candidate with the first codec whose family prefix it
// carries. A candidate matching no prefix is malformed.
func DecodeAny(candidate string, now time.Time, codecs ...*Codec) Result {
	for _, c := range codecs {
		if len(candidate) >= prefixLen && candidate[:prefixLen] == c.Family.Prefix {
			return c.Decode(candidate, now)
		}
	}
	return Result{Status: StatusMalformed}
}
