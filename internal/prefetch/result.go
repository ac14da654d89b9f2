package prefetch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Kind tags a Result.
type Kind string

const (
	KindData  Kind = "data"
	KindError Kind = "error"
)

// Result is either data or an error, never both.
type Result[T any] struct {
	kind Kind
	data T
	err  error
}

// DataResult wraps a successful value.
func DataResult[T any](data T) Result[T] {
	return Result[T]{kind: KindData, data: data}
}

// ErrorResult wraps a failure. A nil err is replaced with a generic one.
func ErrorResult[T any](err error) Result[T] {
	if err == nil {
		err = errRequestFailed
	}
	return Result[T]{kind: KindError, err: err}
}

var errRequestFailed = errors.New("request failed")

// Type returns the variant.
func (r Result[T]) Type() Kind { return r.kind }

// IsData reports whether r holds data.
func (r Result[T]) IsData() bool { return r.kind == KindData }

// Data returns the value; it is the zero value for error results.
func (r Result[T]) Data() T { return r.data }

// Err returns the failure; it is nil for data results. The zero Result
// counts as a failed request.
func (r Result[T]) Err() error {
	if r.kind != KindData && r.err == nil {
		return errRequestFailed
	}
	return r.err
}

// Get returns the value and error as a Go pair.
func (r Result[T]) Get() (T, error) { return r.data, r.Err() }

// MarshalJSON encodes {"type":"data","data":...} or {"type":"error","error":"..."}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.kind == KindData {
		return sonic.Marshal(struct {
			Type Kind `json:"type"`
			Data T    `json:"data"`
		}{KindData, r.data})
	}
	return sonic.Marshal(struct {
		Type  Kind   `json:"type"`
		Error string `json:"error"`
	}{KindError, r.Err().Error()})
}

// Key identifies a query, e.g. KeyOf("transactions", 10).
type Key []any

// KeyOf builds a key from its parts.
func KeyOf(parts ...any) Key {
	return Key(parts)
}

// Name returns the first part, used as the metric label.
func (k Key) Name() string {
	if len(k) == 0 {
		return ""
	}
	return fmt.Sprint(k[0])
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, "/")
}

// TimeoutError is the result of a query that lost the race against its timer.
type TimeoutError struct {
	Key   Key
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query %s timed out after %s", e.Key, e.After)
}

// IsTimeout reports whether err is a prefetch timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// QueryError is returned by CriticalQuery when the data could not be loaded.
type QueryError struct {
	Key Key
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("critical query %s failed: %v", e.Key, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
