package chaos

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/bytedance/sonic"
)

const (
	// CorruptPrefix is prepended to renamed keys.
	CorruptPrefix = "corrupted_"

	keyRenameProbability = 0.2
)

var (
	wordKey = regexp.MustCompile(`^\w+$`)

	// ConfigStd sorts map keys, so output depends only on the draws.
	jsonAPI = sonic.ConfigStd
)

// Corrupt renames object keys in a JSON document. Every key made of word
// characters, at any depth, is independently renamed with probability 0.2 by
// prefixing CorruptPrefix. The result is always valid JSON; which keys get
// renamed differs from call to call.
func Corrupt(raw []byte, rng Random) ([]byte, error) {
	var doc any
	if err := jsonAPI.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	out, err := jsonAPI.Marshal(corruptValue(doc, rng))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

func corruptValue(v any, rng Random) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(t))
		for _, k := range keys {
			name := k
			if wordKey.MatchString(k) && rng.Float64() < keyRenameProbability {
				name = CorruptPrefix + k
			}
			out[name] = corruptValue(t[k], rng)
		}
		return out
	case []any:
		for i := range t {
			t[i] = corruptValue(t[i], rng)
		}
		return t
	default:
		return v
	}
}
