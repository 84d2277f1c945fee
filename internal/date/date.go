// Package date provides a Date type that marshals as YYYY-MM-DD.
package date

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const format = "2006-01-02"

// Date represents a calendar date without time or timezone.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of truncates t to its calendar date in t's location.
func Of(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns today's date.
func Today() Date {
	return Of(time.Now())
}

// Parse parses a YYYY-MM-DD string into a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(format, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// ParseInput accepts YYYY-MM-DD as well as the relative forms "today",
// "tomorrow", "+Nd" and "+Nw", resolved against now.
func ParseInput(s string, now time.Time) (Date, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	base := Of(now)
	switch in {
	case "today":
		return base, nil
	case "tomorrow":
		return base.AddDays(1), nil
	}
	if strings.HasPrefix(in, "+") && len(in) > 2 { //nolint:mnd // "+" plus at least one digit and a unit
		n, err := strconv.Atoi(in[1 : len(in)-1])
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("invalid relative date %q: expected +Nd or +Nw", s)
		}
		switch in[len(in)-1] {
		case 'd':
			return base.AddDays(n), nil
		case 'w':
			return base.AddDays(n * 7), nil //nolint:mnd // days per week
		}
		return Date{}, fmt.Errorf("invalid relative date %q: expected +Nd or +Nw", s)
	}
	return Parse(in)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// Overdue reports whether d lies strictly before the calendar date of now.
func (d Date) Overdue(now time.Time) bool {
	return d.Before(Of(now).Time)
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
