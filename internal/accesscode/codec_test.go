package accesscode

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"
)

const testYear = 2015

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(testYear, month, day, hour, minute, 0, 0, time.UTC)
}

func checkInCodec() *Codec { return New(CheckIn, testYear, time.UTC) }
func returnCodec() *Codec  { return New(ReturnSession, testYear, time.UTC) }

func TestEncode_Layout(t *testing.T) {
	code, err := checkInCodec().Encode(at(time.March, 10, 14, 5), at(time.March, 11, 9, 30), TagCheckIn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// minute, hour, day, zero-based month, year
	want := "0176" + "051410022015" + "300911022015" + "0198"
	if code != want {
		t.Errorf("Encode = %q, want %q", code, want)
	}
	if len(code) != 32 {
		t.Errorf("len = %d, want 32", len(code))
	}
}

func TestEncode_ReturnSessionSuffixes(t *testing.T) {
	c := returnCodec()
	start, end := at(time.January, 1, 0, 0), at(time.December, 31, 23, 59)

	short, err := c.Encode(start, end, TagShort)
	if err != nil {
		t.Fatalf("Encode short: %v", err)
	}
	long, err := c.Encode(start, end, TagLong)
	if err != nil {
		t.Fatalf("Encode long: %v", err)
	}

	if want := "8302" + "000001002015" + "592331112015" + "2153s"; short != want {
		t.Errorf("short = %q, want %q", short, want)
	}
	if !strings.HasSuffix(long, "2153l") || len(long) != 33 {
		t.Errorf("long = %q, want 33 chars ending in 2153l", long)
	}
}

func TestEncode_Errors(t *testing.T) {
	c := checkInCodec()

	if _, err := c.Encode(at(time.May, 1, 0, 0), at(time.May, 2, 0, 0), TagShort); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("unknown tag: err = %v, want ErrUnknownTag", err)
	}
	if _, err := c.Encode(at(time.May, 2, 0, 0), at(time.May, 1, 0, 0), TagCheckIn); !errors.Is(err, ErrInvalidDates) {
		t.Errorf("start after end: err = %v, want ErrInvalidDates", err)
	}
	next := time.Date(testYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := c.Encode(at(time.December, 31, 12, 0), next, TagCheckIn); !errors.Is(err, ErrInvalidDates) {
		t.Errorf("year rollover: err = %v, want ErrInvalidDates", err)
	}
}

func TestEncode_TruncatesToMinute(t *testing.T) {
	c := checkInCodec()
	start := at(time.July, 4, 10, 0).Add(59 * time.Second)
	code, err := c.Encode(start, start.Add(time.Hour), TagCheckIn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res := c.Decode(code, start)
	if !res.Start.Equal(at(time.July, 4, 10, 0)) {
		t.Errorf("Start = %v, want truncated minute", res.Start)
	}
}

func TestDecode_RoundTripValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	yearStart := at(time.January, 1, 0, 0)
	minutesInYear := int(at(time.December, 31, 23, 59).Sub(yearStart).Minutes())

	for _, c := range []*Codec{checkInCodec(), returnCodec()} {
		for _, tag := range []Tag{TagCheckIn, TagShort, TagLong} {
			if _, ok := c.Family.Suffixes[tag]; !ok {
				continue
			}
			for i := 0; i < 200; i++ {
				a := rng.IntN(minutesInYear - 1)
				b := a + 2 + rng.IntN(minutesInYear-a-1)
				if b > minutesInYear {
					b = minutesInYear
				}
				start := yearStart.Add(time.Duration(a) * time.Minute)
				end := yearStart.Add(time.Duration(b) * time.Minute)

				code, err := c.Encode(start, end, tag)
				if err != nil {
					t.Fatalf("Encode(%v, %v): %v", start, end, err)
				}
				now := start.Add(end.Sub(start) / 2)
				res := c.Decode(code, now)
				if res.Status != StatusValid {
					t.Fatalf("Decode(%q) at %v = %v, want valid", code, now, res.Status)
				}
				if !res.Start.Equal(start) || !res.End.Equal(end) || res.Tag != tag {
					t.Fatalf("Decode(%q) = %+v, want start %v end %v tag %s", code, res, start, end, tag)
				}
			}
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	valid := "0176" + "051410022015" + "300911022015" + "0198"

	tests := []struct {
		name  string
		codec *Codec
		code  string
	}{
		{"empty", checkInCodec(), ""},
		{"too short", checkInCodec(), valid[:31]},
		{"too long", checkInCodec(), valid + "0"},
		{"wrong prefix", checkInCodec(), "0177" + valid[4:]},
		{"wrong suffix", checkInCodec(), valid[:28] + "0199"},
		{"letter in body", checkInCodec(), valid[:10] + "x" + valid[11:]},
		{"space in body", checkInCodec(), valid[:10] + " " + valid[11:]},
		{"sign in body", checkInCodec(), "0176-51410022015300911022015" + "0198"},
		{"check-in code to return codec", returnCodec(), valid},
		{"return unknown flag", returnCodec(), "8302" + "051410022015" + "300911022015" + "2153x"},
		{"return uppercase flag", returnCodec(), "8302" + "051410022015" + "300911022015" + "2153S"},
		{"return missing flag", returnCodec(), "8302" + "051410022015" + "300911022015" + "2153"},
		{"invalid dates but wrong length", checkInCodec(), "0176" + "999999999999" + "0198"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.codec.Decode(tt.code, at(time.March, 10, 20, 0))
			if res.Status != StatusMalformed {
				t.Fatalf("Status = %v, want malformed", res.Status)
			}
			if !res.Start.IsZero() || !res.End.IsZero() || res.Tag != "" {
				t.Errorf("malformed result leaks fields: %+v", res)
			}
			if !errors.Is(res.Err(), ErrMalformed) {
				t.Errorf("Err() = %v, want ErrMalformed", res.Err())
			}
		})
	}
}

func TestDecode_InvalidDates(t *testing.T) {
	good := "051410022015"
	wrap := func(start, end string) string { return "0176" + start + end + "0198" }

	tests := []struct {
		name string
		code string
	}{
		{"month 12", wrap("051410122015", good)},
		{"day 00", wrap(good, "051400022015")},
		{"day 32", wrap("051432022015", good)},
		{"feb 30", wrap("051430012015", good)},
		{"apr 31", wrap("051431032015", good)},
		{"hour 24", wrap("052410022015", good)},
		{"minute 60", wrap("601410022015", good)},
		{"other year", wrap("051410022016", good)},
		{"end year", wrap(good, "051410022014")},
		{"start after end", wrap("051411022015", good)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := checkInCodec().Decode(tt.code, at(time.March, 10, 20, 0))
			if res.Status != StatusInvalidDates {
				t.Fatalf("Decode(%q) = %v, want invalid_dates", tt.code, res.Status)
			}
			if !res.Start.IsZero() || !res.End.IsZero() {
				t.Errorf("invalid result leaks window: %+v", res)
			}
			if res.Message() != "Invalid code. Please enter a valid code." {
				t.Errorf("Message() = %q", res.Message())
			}
		})
	}
}

func TestDecode_LeapDayDependsOnYear(t *testing.T) {
	leap := New(CheckIn, 2016, time.UTC)
	code := "0176" + "000029012016" + "000001022016" + "0198"
	res := leap.Decode(code, time.Date(2016, time.February, 29, 12, 0, 0, 0, time.UTC))
	if res.Status != StatusValid {
		t.Errorf("Feb 29 2016: Status = %v, want valid", res.Status)
	}
}

func TestDecode_Temporal(t *testing.T) {
	c := checkInCodec()
	start, end := at(time.March, 10, 14, 0), at(time.March, 11, 14, 0)
	code, err := c.Encode(start, end, TagCheckIn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"well before", start.Add(-72 * time.Hour), StatusNotYetValid},
		{"just before", start.Add(-time.Second), StatusNotYetValid},
		{"at start", start, StatusValid},
		{"middle", start.Add(12 * time.Hour), StatusValid},
		{"at end", end, StatusValid},
		{"just after", end.Add(time.Second), StatusExpired},
		{"next year", end.AddDate(1, 0, 0), StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Decode(code, tt.now)
			if res.Status != tt.want {
				t.Fatalf("Status = %v, want %v", res.Status, tt.want)
			}
			if !res.Start.Equal(start) || !res.End.Equal(end) {
				t.Errorf("window = %v..%v, want %v..%v", res.Start, res.End, start, end)
			}
		})
	}
}

func TestResult_Err(t *testing.T) {
	c := checkInCodec()
	start, end := at(time.March, 10, 14, 0), at(time.March, 11, 14, 0)
	code, _ := c.Encode(start, end, TagCheckIn)

	early := c.Decode(code, start.Add(-time.Hour))
	var te *TemporalError
	if !errors.As(early.Err(), &te) || !errors.Is(early.Err(), ErrNotYetValid) {
		t.Fatalf("early Err() = %v, want TemporalError(ErrNotYetValid)", early.Err())
	}
	if !te.Start.Equal(start) || !te.End.Equal(end) {
		t.Errorf("TemporalError window = %v..%v", te.Start, te.End)
	}

	late := c.Decode(code, end.Add(time.Hour))
	if !errors.Is(late.Err(), ErrExpired) {
		t.Errorf("late Err() = %v, want ErrExpired", late.Err())
	}

	if err := c.Decode(code, start).Err(); err != nil {
		t.Errorf("valid Err() = %v, want nil", err)
	}
}

func TestResult_Message(t *testing.T) {
	c := checkInCodec()
	start, end := at(time.March, 10, 14, 0), at(time.March, 11, 9, 5)
	code, _ := c.Encode(start, end, TagCheckIn)

	early := c.Decode(code, start.Add(-time.Hour)).Message()
	want := "This code is only valid for use between 03/10/2015 at 14:00 and 03/11/2015 at 09:05. Please come back soon!"
	if early != want {
		t.Errorf("early message = %q, want %q", early, want)
	}

	late := c.Decode(code, end.Add(time.Hour)).Message()
	if late != "This code expired on 03/11/2015 at 09:05" {
		t.Errorf("late message = %q", late)
	}
}

func TestDecodeAny(t *testing.T) {
	ci, rs := checkInCodec(), returnCodec()
	start, end := at(time.June, 1, 0, 0), at(time.June, 2, 0, 0)
	code, err := rs.Encode(start, end, TagLong)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	res := DecodeAny(code, start.Add(time.Hour), ci, rs)
	if res.Status != StatusValid || res.Family != ReturnSession.Name || res.Tag != TagLong {
		t.Errorf("DecodeAny = %+v", res)
	}

	if res := DecodeAny("9999", start, ci, rs); res.Status != StatusMalformed {
		t.Errorf("unknown prefix: Status = %v, want malformed", res.Status)
	}
}

func TestFamilyLength(t *testing.T) {
	if got := CheckIn.Length(TagCheckIn); got != 32 {
		t.Errorf("check-in length = %d, want 32", got)
	}
	if got := ReturnSession.Length(TagShort); got != 33 {
		t.Errorf("return length = %d, want 33", got)
	}
	if got := CheckIn.Length(TagLong); got != 0 {
		t.Errorf("missing tag length = %d, want 0", got)
	}
}
