package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PipelineDescriptor is the resolver output for one build unit: the ordered
// steps the engine must apply and the files they apply to.
type PipelineDescriptor struct {
	Annotation string      `json:"annotation" yaml:"annotation"`
	SourceMaps SourceMaps  `json:"sourceMaps" yaml:"sourceMaps"`
	Extensions []string    `json:"extensions" yaml:"extensions"`
	Plugins    []PluginRef `json:"plugins" yaml:"plugins"`
	Presets    []PluginRef `json:"presets" yaml:"presets"`

	// ModuleIDStrategy names the module id function when modules are compiled.
	ModuleIDStrategy string `json:"moduleIdStrategy,omitempty" yaml:"moduleIdStrategy,omitempty"`

	ThrowUnlessParallelizable bool `json:"throwUnlessParallelizable,omitempty" yaml:"throwUnlessParallelizable,omitempty"`

	// Trivial marks a pipeline with no steps and no source maps. Callers must
	// pass input through unmodified instead of invoking the engine.
	Trivial bool `json:"trivial" yaml:"trivial"`
}

// IsTrivial reports whether the engine can be skipped for d.
func IsTrivial(d *PipelineDescriptor) bool {
	if d == nil {
		return true
	}
	return len(d.Plugins) == 0 && !d.SourceMaps.Enabled()
}

// Fingerprint returns a stable hash of the descriptor's canonical JSON.
// Equal descriptors always share a fingerprint.
func (d *PipelineDescriptor) Fingerprint() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PluginIdentifiers lists the plugin identifiers in order.
func (d *PipelineDescriptor) PluginIdentifiers() []string {
	ids := make([]string, len(d.Plugins))
	for i, p := range d.Plugins {
		ids[i] = p.Identifier
	}
	return ids
}
