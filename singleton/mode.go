package singleton

import (
	"fmt"
	"strings"
)

// Mode selects how the singleton factory is brought onto a chain.
type Mode int

const (
	// ModeDeterministicReplay broadcasts the presigned factory transaction, which yields the same
	// factory address on every supported chain.
	ModeDeterministicReplay Mode = iota + 1
	// ModeDirect deploys the minimal CREATE2 factory from the deployer account. The factory
	// address depends on the deployer and its nonce.
	ModeDirect
)

// ParseMode parses "deterministic" or "direct".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deterministic", "deterministic-replay":
		return ModeDeterministicReplay, nil
	case "direct":
		return ModeDirect, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDeterministicReplay:
		return "deterministic"
	case ModeDirect:
		return "direct"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeDeterministicReplay && m != ModeDirect {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed

	return nil
}
