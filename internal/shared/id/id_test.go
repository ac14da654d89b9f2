package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithPrefix(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"request", func() string { return NewRequestID().String() }, RequestPrefix},
		{"trace", func() string { return NewTraceID().String() }, TracePrefix},
		{"span", func() string { return NewSpanID().String() }, SpanPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.gen()
			assert.True(t, strings.HasPrefix(s, tt.prefix+"_"))
			assert.Len(t, s, len(tt.prefix)+1+26)
			assert.True(t, IsValid(s))
		})
	}
}

func TestParse(t *testing.T) {
	raw := Default().GenerateString()

	a, err := Parse(raw)
	require.NoError(t, err)
	b, err := Parse("req_" + raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.False(t, IsValid("not-a-ulid"))
	assert.False(t, IsValid(""))
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	s := NewTraceID().String()
	after := time.Now()

	ts, err := Timestamp(s)
	require.NoError(t, err)
	assert.False(t, ts.Before(before))
	assert.False(t, ts.After(after))

	_, err = Timestamp("bad")
	assert.Error(t, err)
}

func TestConcurrentGenerationIsUnique(t *testing.T) {
	const workers, perWorker = 10, 100

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				s := NewRequestID().String()
				mu.Lock()
				seen[s] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestLexicographicSorting(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = Default().GenerateString()
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}
