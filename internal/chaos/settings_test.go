package chaos

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRandom replays values in order and then repeats the last one.
type scriptedRandom struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func script(values ...float64) *scriptedRandom {
	return &scriptedRandom{values: values}
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[min(r.next, len(r.values)-1)]
	r.next++
	return v
}

func (r *scriptedRandom) IntN(n int) int {
	return int(r.Float64() * float64(n))
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Settings) {}},
		{name: "rate zero", modify: func(s *Settings) { s.FailureRate = 0 }},
		{name: "rate one", modify: func(s *Settings) { s.FailureRate = 1 }},
		{name: "rate above one", modify: func(s *Settings) { s.FailureRate = 1.5 }, wantErr: true},
		{name: "rate negative", modify: func(s *Settings) { s.FailureRate = -0.1 }, wantErr: true},
		{name: "rate NaN", modify: func(s *Settings) { s.FailureRate = math.NaN() }, wantErr: true},
		{name: "negative min", modify: func(s *Settings) { s.LatencyMin = -1 }, wantErr: true},
		{name: "max below min", modify: func(s *Settings) { s.LatencyMin, s.LatencyMax = 500, 100 }, wantErr: true},
		{name: "zero latency", modify: func(s *Settings) { s.LatencyMin, s.LatencyMax = 0, 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)

			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettingsLatency(t *testing.T) {
	s := Settings{LatencyMin: 100, LatencyMax: 800}

	assert.Equal(t, 100*time.Millisecond, s.Latency(script(0)))
	assert.Equal(t, 450*time.Millisecond, s.Latency(script(0.5)))
	assert.Equal(t, 799*time.Millisecond, s.Latency(script(0.9999)))

	rng := NewRandom(7)
	for range 1000 {
		d := s.Latency(rng)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 800*time.Millisecond)
	}
}

func TestPatchApply(t *testing.T) {
	base := DefaultSettings()

	assert.True(t, Patch{}.IsEmpty())
	assert.Equal(t, base, Patch{}.Apply(base))

	rate := 0.75
	on := true
	got := Patch{FailureRate: &rate, Timeout: &on}.Apply(base)
	assert.Equal(t, 0.75, got.FailureRate)
	assert.True(t, got.Timeout)
	assert.Equal(t, base.LatencyMin, got.LatencyMin)
	assert.False(t, got.MalformedData)

	full := Settings{FailureRate: 1, LatencyMin: 5, LatencyMax: 6, CriticalEndpointFailure: true}
	assert.Equal(t, full, PatchFrom(full).Apply(base))
}

func TestNewRandomSeeded(t *testing.T) {
	a, b := NewRandom(99), NewRandom(99)
	for range 10 {
		require.Equal(t, a.Float64(), b.Float64())
	}
	n := a.IntN(5)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 5)
}
