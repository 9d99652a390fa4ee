package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSourceMaps(t *testing.T) {
	tests := []struct {
		input   any
		want    SourceMaps
		wantErr bool
	}{
		{nil, SourceMapsOff, false},
		{false, SourceMapsOff, false},
		{true, SourceMapsOn, false},
		{"inline", SourceMapsInline, false},
		{"INLINE", SourceMapsInline, false},
		{"true", SourceMapsOn, false},
		{"false", SourceMapsOff, false},
		{"both", SourceMapsOff, true},
		{1, SourceMapsOff, true},
	}

	for _, tt := range tests {
		got, err := ParseSourceMaps(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.input)
			continue
		}
		require.NoError(t, err, "input %v", tt.input)
		assert.Equal(t, tt.want, got, "input %v", tt.input)
	}
}

func TestSourceMaps_Encoding(t *testing.T) {
	for _, s := range []SourceMaps{SourceMapsOff, SourceMapsOn, SourceMapsInline} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var back SourceMaps
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, s, back)
	}

	data, err := json.Marshal(SourceMapsInline)
	require.NoError(t, err)
	assert.Equal(t, `"inline"`, string(data))

	out, err := yaml.Marshal(map[string]SourceMaps{"sourceMaps": SourceMapsOn})
	require.NoError(t, err)
	assert.Equal(t, "sourceMaps: true\n", string(out))
}
