// Package coverage reads a dataset's temporal extent from its global attributes.
//
// Timestamps without a zone designator are interpreted in a caller-supplied location, which
// is time.Local for Get and TimeMarks. Epoch values for such datasets therefore depend on the
// host's zone; this matches how the values have always been computed for the time slider.
package coverage

import (
	"fmt"
	"strings"
	"time"

	"github.com/sdig/erddap/info/pkg/table"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Coverage is the time_coverage_start/end pair of a dataset.
type Coverage struct {
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// Get reads the coverage, interpreting naive timestamps in time.Local.
func Get(t *table.Table) (Coverage, error) {
	return GetIn(t, time.Local)
}

// GetIn reads the coverage, interpreting naive timestamps in loc.
func GetIn(t *table.Table, loc *time.Location) (Coverage, error) {
	start, err := globalTime(t, "time_coverage_start", loc)
	if err != nil {
		return Coverage{}, err
	}
	end, err := globalTime(t, "time_coverage_end", loc)
	if err != nil {
		return Coverage{}, err
	}
	return Coverage{
		StartDate:    start.Format(DateLayout),
		EndDate:      end.Format(DateLayout),
		StartSeconds: EpochSeconds(start),
		EndSeconds:   EpochSeconds(end),
	}, nil
}

func globalTime(t *table.Table, attribute string, loc *time.Location) (time.Time, error) {
	value, err := t.Global(attribute)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := ParseISO8601(value, loc)
	if err != nil {
		return time.Time{}, &DateParseError{Attribute: attribute, Value: value, Err: err}
	}
	return ts, nil
}

// EpochSeconds converts t to fractional seconds since 1970-01-01T00:00:00Z.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromEpochSeconds is the inverse of EpochSeconds.
func FromEpochSeconds(sec float64) time.Time {
	whole := int64(sec)
	return time.Unix(whole, int64((sec-float64(whole))*1e9))
}

// TimeMarks labels the start and end of a time slider, in time.Local.
func TimeMarks(start, end float64) map[int64]string {
	return TimeMarksIn(start, end, time.Local)
}

// TimeMarksIn returns one YYYY-MM label keyed by the truncated epoch second for each of start
// and end. The map holds a single entry when both truncate to the same second.
func TimeMarksIn(start, end float64, loc *time.Location) map[int64]string {
	marks := make(map[int64]string, 2)
	for _, sec := range []float64{start, end} {
		marks[int64(sec)] = FromEpochSeconds(sec).In(loc).Format(MonthLayout)
	}
	return marks
}

// DateParseError is returned when a coverage attribute is not ISO 8601.
type DateParseError struct {
	Attribute string
	Value     string
	Err       error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q as ISO 8601: %v", e.Attribute, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// Layouts tried in order by ParseISO8601. Fractional seconds are accepted after any seconds
// field by time.Parse itself.
var layouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02T15Z07:00",
	"2006-01-02T15",
	"20060102T150405Z07:00",
	"20060102T150405Z0700",
	"20060102T150405",
	"20060102T1504",
	"2006-01-02",
	"20060102",
	"2006-01",
	"2006",
}

// ParseISO8601 parses the common ISO 8601 profiles found in ERDDAP metadata. A space may
// separate date and time. Values without a zone designator are placed in loc.
func ParseISO8601(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}

	var firstErr error
	for _, layout := range layouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
