package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTrivial(t *testing.T) {
	assert.True(t, IsTrivial(nil))
	assert.True(t, IsTrivial(&PipelineDescriptor{}))
	assert.True(t, IsTrivial(&PipelineDescriptor{Presets: []PluginRef{{Identifier: "@babel/preset-env"}}}))
	assert.False(t, IsTrivial(&PipelineDescriptor{SourceMaps: SourceMapsInline}))
	assert.False(t, IsTrivial(&PipelineDescriptor{Plugins: []PluginRef{{Identifier: "x"}}}))
}

func TestPipelineDescriptor_Fingerprint(t *testing.T) {
	build := func() *PipelineDescriptor {
		return &PipelineDescriptor{
			Annotation: "Babel: app",
			Extensions: []string{"js"},
			Plugins: []PluginRef{
				Plugin("@babel/plugin-transform-modules-amd", map[string]any{"noInterop": true, "b": 1, "a": 2}),
			},
		}
	}

	a, err := build().Fingerprint()
	require.NoError(t, err)
	b, err := build().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	changed := build()
	changed.Extensions = []string{"js", "ts"}
	c, err := changed.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDependencies_Lookup(t *testing.T) {
	deps := Dependencies{"ember-source": "3.28.0", "broken": ""}

	assert.Equal(t, Dependency{Name: "ember-source", Version: "3.28.0", Present: true}, deps.Lookup("ember-source"))
	assert.Equal(t, Dependency{Name: "missing"}, deps.Lookup("missing"))
	assert.False(t, deps.Lookup("broken").HasVersion())
	assert.True(t, deps.Lookup("broken").Present)
}
