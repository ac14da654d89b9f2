package chaos

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid chaos settings")

// Settings controls the faults injected into every response.
type Settings struct {
	// FailureRate is the probability in [0,1] of answering 500 immediately.
	FailureRate float64 `json:"failureRate" toml:"failureRate"`
	// LatencyMin and LatencyMax bound the artificial delay, in milliseconds.
	LatencyMin int `json:"latencyMin" toml:"latencyMin"`
	LatencyMax int `json:"latencyMax" toml:"latencyMax"`
	// Timeout lets a share of requests hang without ever answering.
	Timeout bool `json:"timeout" toml:"timeout"`
	// MalformedData lets a share of payloads come back with renamed keys.
	MalformedData bool `json:"malformedData" toml:"malformedData"`
	// CriticalEndpointFailure forces the critical endpoint to fail.
	CriticalEndpointFailure bool `json:"criticalEndpointFailure" toml:"criticalEndpointFailure"`
	// OptionalEndpointFailure forces the optional endpoint to fail.
	OptionalEndpointFailure bool `json:"optionalEndpointFailure" toml:"optionalEndpointFailure"`
}

// DefaultSettings returns the stock chaos profile.
func DefaultSettings() Settings {
	return Settings{
		FailureRate: 0.2,
		LatencyMin:  100,
		LatencyMax:  800,
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var errs []error
	if math.IsNaN(s.FailureRate) || s.FailureRate < 0 || s.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("%w: failureRate %v must be within [0,1]", ErrInvalidSettings, s.FailureRate))
	}
	if s.LatencyMin < 0 {
		errs = append(errs, fmt.Errorf("%w: latencyMin %d must not be negative", ErrInvalidSettings, s.LatencyMin))
	}
	if s.LatencyMax < s.LatencyMin {
		errs = append(errs, fmt.Errorf("%w: latencyMax %d is below latencyMin %d", ErrInvalidSettings, s.LatencyMax, s.LatencyMin))
	}
	return errors.Join(errs...)
}

// Latency draws a delay uniformly from [LatencyMin, LatencyMax), truncated
// to whole milliseconds.
func (s Settings) Latency(rng Random) time.Duration {
	span := float64(s.LatencyMax - s.LatencyMin)
	ms := math.Floor(float64(s.LatencyMin) + rng.Float64()*span)
	return time.Duration(ms) * time.Millisecond
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	FailureRate             *float64 `json:"failureRate,omitempty" toml:"failureRate,omitempty"`
	LatencyMin              *int     `json:"latencyMin,omitempty" toml:"latencyMin,omitempty"`
	LatencyMax              *int     `json:"latencyMax,omitempty" toml:"latencyMax,omitempty"`
	Timeout                 *bool    `json:"timeout,omitempty" toml:"timeout,omitempty"`
	MalformedData           *bool    `json:"malformedData,omitempty" toml:"malformedData,omitempty"`
	CriticalEndpointFailure *bool    `json:"criticalEndpointFailure,omitempty" toml:"criticalEndpointFailure,omitempty"`
	OptionalEndpointFailure *bool    `json:"optionalEndpointFailure,omitempty" toml:"optionalEndpointFailure,omitempty"`
}

// Apply returns s with every non-nil field of p merged in.
func (p Patch) Apply(s Settings) Settings {
	if p.FailureRate != nil {
		s.FailureRate = *p.FailureRate
	}
	if p.LatencyMin != nil {
		s.LatencyMin = *p.LatencyMin
	}
	if p.LatencyMax != nil {
		s.LatencyMax = *p.LatencyMax
	}
	if p.Timeout != nil {
		s.Timeout = *p.Timeout
	}
	if p.MalformedData != nil {
		s.MalformedData = *p.MalformedData
	}
	if p.CriticalEndpointFailure != nil {
		s.CriticalEndpointFailure = *p.CriticalEndpointFailure
	}
	if p.OptionalEndpointFailure != nil {
		s.OptionalEndpointFailure = *p.OptionalEndpointFailure
	}
	return s
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// PatchFrom builds a patch that sets every field to the value in s.
func PatchFrom(s Settings) Patch {
	return Patch{
		FailureRate:             &s.FailureRate,
		LatencyMin:              &s.LatencyMin,
		LatencyMax:              &s.LatencyMax,
		Timeout:                 &s.Timeout,
		MalformedData:           &s.MalformedData,
		CriticalEndpointFailure: &s.CriticalEndpointFailure,
		OptionalEndpointFailure: &s.OptionalEndpointFailure,
	}
}
