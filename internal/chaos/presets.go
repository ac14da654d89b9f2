package chaos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("unknown chaos preset")

// Preset is a named settings patch laid over the initial settings.
type Preset struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description" toml:"description"`
	Patch       Patch  `json:"settings" toml:"settings"`
}

// Presets indexes presets by name.
type Presets map[string]Preset

func ptr[T any](v T) *T { return &v }

// BuiltinPresets returns the stock scenarios used by the workshop exercises.
func BuiltinPresets() Presets {
	calm := Patch{
		FailureRate:             ptr(0.0),
		Timeout:                 ptr(false),
		MalformedData:           ptr(false),
		CriticalEndpointFailure: ptr(false),
		OptionalEndpointFailure: ptr(false),
	}
	with := func(p Patch, mod func(*Patch)) Patch {
		mod(&p)
		return p
	}

	list := []Preset{
		{Name: "calm", Description: "No injected faults", Patch: calm},
		{Name: "flaky", Description: "Half of all requests fail", Patch: with(calm, func(p *Patch) {
			p.FailureRate = ptr(0.5)
		})},
		{Name: "slow", Description: "Every response takes seconds", Patch: with(calm, func(p *Patch) {
			p.LatencyMin = ptr(2000)
			p.LatencyMax = ptr(6000)
		})},
		{Name: "hanging", Description: "Some requests never answer", Patch: with(calm, func(p *Patch) {
			p.Timeout = ptr(true)
		})},
		{Name: "malformed", Description: "Some payloads have renamed keys", Patch: with(calm, func(p *Patch) {
			p.MalformedData = ptr(true)
		})},
		{Name: "critical-down", Description: "The critical endpoint always fails", Patch: with(calm, func(p *Patch) {
			p.CriticalEndpointFailure = ptr(true)
		})},
		{Name: "optional-down", Description: "The optional endpoint always fails", Patch: with(calm, func(p *Patch) {
			p.OptionalEndpointFailure = ptr(true)
		})},
		{Name: "meltdown", Description: "Everything at once", Patch: Patch{
			FailureRate:             ptr(0.9),
			LatencyMin:              ptr(1000),
			LatencyMax:              ptr(4000),
			Timeout:                 ptr(true),
			MalformedData:           ptr(true),
			CriticalEndpointFailure: ptr(true),
			OptionalEndpointFailure: ptr(true),
		}},
	}

	presets := make(Presets, len(list))
	for _, p := range list {
		presets[p.Name] = p
	}
	return presets
}

type presetFile struct {
	Presets []Preset `toml:"preset"`
}

// LoadPresets decodes [[preset]] tables from TOML.
//
//	[[preset]]
//	name = "lossy"
//	description = "One in three fails"
//	[preset.settings]
//	failureRate = 0.33
func LoadPresets(r io.Reader) ([]Preset, error) {
	var file presetFile
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Presets))
	for i, p := range file.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d: missing name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("preset %q: defined twice", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return file.Presets, nil
}

// LoadPresetFile reads presets from a TOML file.
func LoadPresetFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	presets, err := LoadPresets(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return presets, nil
}

// With returns a copy of ps with extra presets added, replacing same-named
// ones.
func (ps Presets) With(extra ...Preset) Presets {
	out := make(Presets, len(ps)+len(extra))
	for k, v := range ps {
		out[k] = v
	}
	for _, p := range extra {
		out[p.Name] = p
	}
	return out
}

// Get looks a preset up by name.
func (ps Presets) Get(name string) (Preset, error) {
	p, ok := ps[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// List returns all presets sorted by name.
func (ps Presets) List() []Preset {
	out := make([]Preset, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
