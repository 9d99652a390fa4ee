package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceMaps is the engine's source map setting: false, true or "inline".
type SourceMaps int

// Source map settings.
const (
	SourceMapsOff SourceMaps = iota
	SourceMapsOn
	SourceMapsInline
)

// Enabled reports whether any source map output is requested.
func (s SourceMaps) Enabled() bool {
	return s != SourceMapsOff
}

// String returns the literal form used in configuration.
func (s SourceMaps) String() string {
	switch s {
	case SourceMapsOn:
		return "true"
	case SourceMapsInline:
		return "inline"
	default:
		return "false"
	}
}

// ParseSourceMaps converts a configuration value. Booleans, "true"/"false"
// and "inline" are accepted; nil means off.
func ParseSourceMaps(v any) (SourceMaps, error) {
	switch t := v.(type) {
	case nil:
		return SourceMapsOff, nil
	case SourceMaps:
		return t, nil
	case bool:
		if t {
			return SourceMapsOn, nil
		}
		return SourceMapsOff, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false":
			return SourceMapsOff, nil
		case "true":
			return SourceMapsOn, nil
		case "inline":
			return SourceMapsInline, nil
		}
		return SourceMapsOff, fmt.Errorf("invalid sourceMaps value %q (want true, false or \"inline\")", t)
	default:
		return SourceMapsOff, fmt.Errorf("invalid sourceMaps value of type %T", v)
	}
}

func (s SourceMaps) literal() any {
	switch s {
	case SourceMapsOn:
		return true
	case SourceMapsInline:
		return "inline"
	default:
		return false
	}
}

// MarshalJSON encodes the setting as false, true or "inline".
func (s SourceMaps) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.literal())
}

// UnmarshalJSON decodes false, true or "inline".
func (s *SourceMaps) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSourceMaps(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML encodes the setting as false, true or "inline".
func (s SourceMaps) MarshalYAML() (any, error) {
	return s.literal(), nil
}

// UnmarshalYAML decodes false, true or "inline".
func (s *SourceMaps) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSourceMaps(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
