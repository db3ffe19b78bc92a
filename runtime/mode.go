package runtime

import (
	"fmt"
	"strings"
)

// Mode selects whether disallowed writes and missing bindings are reported
// as errors (Strict) or silently ignored (Permissive). The mutation outcome
// is the same in both modes.
type Mode int

const (
	Permissive Mode = iota
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "permissive"
}

// ParseMode accepts "strict" and "permissive" (also "sloppy").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "use strict":
		return Strict, nil
	case "", "permissive", "sloppy":
		return Permissive, nil
	}
	return Permissive, fmt.Errorf("unknown mode %q", s)
}

// UnmarshalText lets modes appear in scenario files and flags.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
