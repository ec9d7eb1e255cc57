package split

import (
	"fmt"
	"strings"
)

// Method selects how a bill is divided
type Method int

const (
	// Equal divides the bill total evenly across all participants
	Equal Method = iota
	// Itemized charges each participant for the items assigned to them
	Itemized
)

// String returns the wire name of the method
func (m Method) String() string {
	switch m {
	case Equal:
		return "equal"
	case Itemized:
		return "itemized"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses a method name. "custom" is accepted as an alias for
// itemized.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "":
		return Equal, nil
	case "itemized", "custom":
		return Itemized, nil
	default:
		return 0, fmt.Errorf("unknown split method: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case Equal, Itemized:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("unknown split method: %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
