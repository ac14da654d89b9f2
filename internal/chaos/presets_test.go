package chaos

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPresetsAreValid(t *testing.T) {
	presets := BuiltinPresets()

	var names []string
	for _, p := range presets.List() {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Description)
		assert.NoError(t, p.Patch.Apply(DefaultSettings()).Validate(), p.Name)
	}
	assert.Equal(t, []string{
		"calm", "critical-down", "flaky", "hanging", "malformed", "meltdown", "optional-down", "slow",
	}, names)

	down, err := presets.Get("critical-down")
	require.NoError(t, err)
	s := down.Patch.Apply(DefaultSettings())
	assert.True(t, s.CriticalEndpointFailure)
	assert.Zero(t, s.FailureRate)

	_, err = presets.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestLoadPresets(t *testing.T) {
	doc := `
[[preset]]
name = "lossy"
description = "One in three fails"
[preset.settings]
failureRate = 0.33
latencyMax = 300

[[preset]]
name = "calm"
description = "Overridden calm"
[preset.settings]
failureRate = 0.01
`
	loaded, err := LoadPresets(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	lossy := loaded[0]
	assert.Equal(t, "lossy", lossy.Name)
	require.NotNil(t, lossy.Patch.FailureRate)
	assert.Equal(t, 0.33, *lossy.Patch.FailureRate)
	require.NotNil(t, lossy.Patch.LatencyMax)
	assert.Equal(t, 300, *lossy.Patch.LatencyMax)
	assert.Nil(t, lossy.Patch.Timeout)

	merged := BuiltinPresets().With(loaded...)
	assert.Len(t, merged, 9)
	calm, err := merged.Get("calm")
	require.NoError(t, err)
	assert.Equal(t, "Overridden calm", calm.Description)
	assert.Len(t, BuiltinPresets(), 8)
}

func TestLoadPresetsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "[[preset]]\ndescription = \"x\"\n"},
		{"duplicate", "[[preset]]\nname = \"a\"\n[[preset]]\nname = \"a\"\n"},
		{"unknown field", "[[preset]]\nname = \"a\"\n[preset.settings]\nfailRate = 1\n"},
		{"bad syntax", "[[preset]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPresets(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPresetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[preset]]\nname = \"quiet\"\n"), 0o644))

	loaded, err := LoadPresetFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Patch.IsEmpty())

	_, err = LoadPresetFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
