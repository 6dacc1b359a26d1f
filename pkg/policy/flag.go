// Package policy decides whether a finished build is worth a text message.
package policy

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Flag is a three-state switch. Unset means the option was never
// configured, which every consumer treats as "no".
type Flag int

const (
	Unset Flag = iota
	Enabled
	Disabled
)

// ParseFlag accepts "true"/"Yes" and "false"/"No"; anything else is Unset.
func ParseFlag(s string) Flag {
	switch s {
	case "true", "Yes":
		return Enabled
	case "false", "No":
		return Disabled
	default:
		return Unset
	}
}

// FlagOf converts a bool.
func FlagOf(b bool) Flag {
	if b {
		return Enabled
	}
	return Disabled
}

// IsEnabled reports whether f is explicitly Enabled.
func (f Flag) IsEnabled() bool { return f == Enabled }

// IsSet reports whether f was configured at all.
func (f Flag) IsSet() bool { return f == Enabled || f == Disabled }

func (f Flag) String() string {
	switch f {
	case Enabled:
		return "true"
	case Disabled:
		return "false"
	default:
		return "unset"
	}
}

// MarshalJSON encodes Unset as null.
func (f Flag) MarshalJSON() ([]byte, error) {
	switch f {
	case Enabled:
		return []byte("true"), nil
	case Disabled:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts booleans, the strings ParseFlag knows, and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = Unset
	case bool:
		*f = FlagOf(t)
	case string:
		*f = ParseFlag(t)
	default:
		return fmt.Errorf("policy: cannot decode %s as flag", data)
	}
	return nil
}

// MarshalYAML encodes Unset as null.
func (f Flag) MarshalYAML() (interface{}, error) {
	switch f {
	case Enabled:
		return true, nil
	case Disabled:
		return false, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts the same spellings as ParseFlag plus YAML null.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("policy: line %d: flag must be a scalar", value.Line)
	}
	if value.Tag == "!!null" {
		*f = Unset
		return nil
	}
	*f = ParseFlag(value.Value)
	return nil
}
