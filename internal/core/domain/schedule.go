package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type ScheduleKind string

const (
	ScheduleEveryday     ScheduleKind = "everyday"
	ScheduleSpecificDays ScheduleKind = "specific_days"
	ScheduleFrequency    ScheduleKind = "frequency"
)

var ErrInvalidSchedule = fmt.Errorf("%w: invalid schedule", ErrValidation)

// Schedule is the tagged variant Everyday | SpecificDays(set) | Frequency(n).
// Only the fields of the active Kind are meaningful.
type Schedule struct {
	Kind         ScheduleKind
	Days         []time.Weekday
	TimesPerWeek int
}

func Everyday() Schedule { return Schedule{Kind: ScheduleEveryday} }

func SpecificDays(days ...time.Weekday) Schedule {
	return Schedule{Kind: ScheduleSpecificDays, Days: normalizeWeekdays(days)}
}

func Frequency(timesPerWeek int) Schedule {
	return Schedule{Kind: ScheduleFrequency, TimesPerWeek: timesPerWeek}
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}

	seen := make(map[time.Weekday]bool)
	var unique []time.Weekday
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return unique
}

func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleEveryday:
		return nil
	case ScheduleSpecificDays:
		if len(s.Days) == 0 {
			return fmt.Errorf("%w: specific_days needs at least one weekday", ErrInvalidSchedule)
		}
		for _, d := range s.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidSchedule, d)
			}
		}
		return nil
	case ScheduleFrequency:
		if s.TimesPerWeek < 1 || s.TimesPerWeek > 7 {
			return fmt.Errorf("%w: timesPerWeek %d out of range 1-7", ErrInvalidSchedule, s.TimesPerWeek)
		}
		return nil
	case "":
		return fmt.Errorf("%w: missing schedule", ErrInvalidSchedule)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, s.Kind)
	}
}

func (s Schedule) HasDay(d time.Weekday) bool {
	for _, wd := range s.Days {
		if wd == d {
			return true
		}
	}
	return false
}

func (s Schedule) String() string {
	switch s.Kind {
	case ScheduleEveryday:
		return "everyday"
	case ScheduleSpecificDays:
		names := make([]string, 0, len(s.Days))
		for _, d := range s.Days {
			names = append(names, d.String()[:3])
		}
		return "on " + strings.Join(names, ",")
	case ScheduleFrequency:
		return fmt.Sprintf("%dx per week", s.TimesPerWeek)
	default:
		return "unknown"
	}
}

type scheduleJSON struct {
	Type         ScheduleKind `json:"type"`
	Days         []int        `json:"days,omitempty"`
	TimesPerWeek int          `json:"timesPerWeek,omitempty"`
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	out := scheduleJSON{Type: s.Kind}
	switch s.Kind {
	case ScheduleSpecificDays:
		out.Days = make([]int, 0, len(s.Days))
		for _, d := range s.Days {
			out.Days = append(out.Days, int(d))
		}
	case ScheduleFrequency:
		out.TimesPerWeek = s.TimesPerWeek
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the legacy shapes as well as the tagged object:
// "everyday", [1,3,5], {"type":"frequency","timesPerWeek":3}.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Schedule{}
		return nil
	}

	switch data[0] {
	case '"':
		var lit string
		if err := json.Unmarshal(data, &lit); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		if ScheduleKind(lit) != ScheduleEveryday && lit != "daily" {
			return fmt.Errorf("%w: unknown literal %q", ErrInvalidSchedule, lit)
		}
		*s = Everyday()
		return nil
	case '[':
		var days []int
		if err := json.Unmarshal(data, &days); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		parsed, err := weekdaysFromInts(days)
		if err != nil {
			return err
		}
		*s = Schedule{Kind: ScheduleSpecificDays, Days: parsed}
		return nil
	case '{':
		var raw scheduleJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		parsed, err := weekdaysFromInts(raw.Days)
		if err != nil {
			return err
		}
		*s = Schedule{Kind: raw.Type, Days: parsed, TimesPerWeek: raw.TimesPerWeek}
		return nil
	default:
		return fmt.Errorf("%w: unsupported JSON shape", ErrInvalidSchedule)
	}
}

func weekdaysFromInts(days []int) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidSchedule, d)
		}
		out = append(out, time.Weekday(d))
	}
	return normalizeWeekdays(out), nil
}
