package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginRef names one transformation step and its parameters. The
// identifier is opaque to pipewright; the engine resolves it.
type PluginRef struct {
	Identifier string         `json:"identifier" yaml:"identifier"`
	Params     map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty"`
}

// Plugin is shorthand for a PluginRef without a label.
func Plugin(identifier string, params map[string]any) PluginRef {
	return PluginRef{Identifier: identifier, Params: params}
}

// String returns the identifier, with the label when one is set.
func (p PluginRef) String() string {
	if p.Label != "" {
		return fmt.Sprintf("%s (%s)", p.Identifier, p.Label)
	}
	return p.Identifier
}

// ParsePluginRef converts the loosely typed forms hosts use to declare a step:
//
//	"identifier"
//	["identifier", {params}, "label"]
//	{identifier: ..., params: {...}, label: ...}   (name/options accepted as aliases)
func ParsePluginRef(v any) (PluginRef, error) {
	switch t := v.(type) {
	case PluginRef:
		return t, nil
	case *PluginRef:
		if t == nil {
			return PluginRef{}, fmt.Errorf("plugin reference is nil")
		}
		return *t, nil
	case string:
		if t == "" {
			return PluginRef{}, fmt.Errorf("plugin identifier is empty")
		}
		return PluginRef{Identifier: t}, nil
	case []any:
		return parsePluginTuple(t)
	case map[string]any:
		return parsePluginMap(t)
	default:
		return PluginRef{}, fmt.Errorf("unsupported plugin reference of type %T", v)
	}
}

func parsePluginTuple(t []any) (PluginRef, error) {
	if len(t) == 0 || len(t) > 3 {
		return PluginRef{}, fmt.Errorf("plugin tuple must have 1 to 3 elements, got %d", len(t))
	}
	id, ok := t[0].(string)
	if !ok || id == "" {
		return PluginRef{}, fmt.Errorf("plugin tuple must start with an identifier string")
	}
	ref := PluginRef{Identifier: id}
	if len(t) > 1 && t[1] != nil {
		params, ok := t[1].(map[string]any)
		if !ok {
			return PluginRef{}, fmt.Errorf("plugin %q: params must be a map, got %T", id, t[1])
		}
		ref.Params = params
	}
	if len(t) > 2 && t[2] != nil {
		label, ok := t[2].(string)
		if !ok {
			return PluginRef{}, fmt.Errorf("plugin %q: label must be a string, got %T", id, t[2])
		}
		ref.Label = label
	}
	return ref, nil
}

func parsePluginMap(m map[string]any) (PluginRef, error) {
	var ref PluginRef
	for _, key := range []string{"identifier", "name"} {
		if s, ok := m[key].(string); ok && s != "" {
			ref.Identifier = s
			break
		}
	}
	if ref.Identifier == "" {
		return PluginRef{}, fmt.Errorf("plugin map needs an identifier")
	}
	for _, key := range []string{"params", "options"} {
		if raw, ok := m[key]; ok && raw != nil {
			params, ok := raw.(map[string]any)
			if !ok {
				return PluginRef{}, fmt.Errorf("plugin %q: %s must be a map, got %T", ref.Identifier, key, raw)
			}
			ref.Params = params
			break
		}
	}
	if label, ok := m["label"].(string); ok {
		ref.Label = label
	}
	return ref, nil
}

// ParsePluginList converts a list of loosely typed step declarations.
func ParsePluginList(v any) ([]PluginRef, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []PluginRef:
		return append([]PluginRef(nil), t...), nil
	case []any:
		refs := make([]PluginRef, 0, len(t))
		for i, item := range t {
			ref, err := ParsePluginRef(item)
			if err != nil {
				return nil, fmt.Errorf("plugin #%d: %w", i, err)
			}
			refs = append(refs, ref)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("plugin list must be a list, got %T", v)
	}
}

// UnmarshalYAML accepts every form ParsePluginRef does.
func (p *PluginRef) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	ref, err := ParsePluginRef(raw)
	if err != nil {
		return err
	}
	*p = ref
	return nil
}

// UnmarshalJSON accepts every form ParsePluginRef does.
func (p *PluginRef) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := ParsePluginRef(raw)
	if err != nil {
		return err
	}
	*p = ref
	return nil
}
