package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// System identifies one of the two supported calendar systems.
type System int

const (
	Gregorian System = iota
	Jalali
)

// ErrUnknownSystem is returned when a system name cannot be parsed.
var ErrUnknownSystem = errors.New("unknown calendar system")

func (s System) String() string {
	switch s {
	case Gregorian:
		return "gregorian"
	case Jalali:
		return "jalali"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// Other returns the system that is not s.
func (s System) Other() System {
	if s == Jalali {
		return Gregorian
	}
	return Jalali
}

// ParseSystem accepts "gregorian"/"jalali" and the common aliases
// "g", "solar", "j", "shamsi" and "persian" (case-insensitive).
func ParseSystem(name string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gregorian", "g", "solar":
		return Gregorian, nil
	case "jalali", "j", "shamsi", "persian":
		return Jalali, nil
	default:
		return Gregorian, fmt.Errorf("%w: %q", ErrUnknownSystem, name)
	}
}

func (s System) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *System) UnmarshalText(b []byte) error {
	v, err := ParseSystem(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
