// Package position
package position

import "fmt"

// Side is the direction of an open simulated position.
type Side int8

const (
	Flat  Side = 0
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// MarshalText renders the side as LONG, SHORT or FLAT.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses LONG, SHORT or FLAT.
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "LONG":
		*s = Long
	case "SHORT":
		*s = Short
	case "FLAT":
		*s = Flat
	default:
		return fmt.Errorf("unknown position side %q", text)
	}
	return nil
}
