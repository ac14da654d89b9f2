// Package reporting defines the error-observability sink used by the
// resilience core. Reporting is fire-and-forget: callers never depend on
// anything a Reporter does with an error.
package reporting

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
)

// Reporter receives errors for out-of-band observation.
type Reporter interface {
	Report(err error)
}

// Func adapts a plain function to Reporter.
type Func func(err error)

// Report calls f(err).
func (f Func) Report(err error) {
	f(err)
}

type nopReporter struct{}

func (nopReporter) Report(error) {}

// Nop returns a Reporter that drops everything.
func Nop() Reporter {
	return nopReporter{}
}

// TaggedError carries a PascalCase category ending in "Error", such as
// "TransactionsError", alongside the underlying cause.
type TaggedError struct {
	Tag string
	Err error
}

func (e *TaggedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tag, e.Err)
}

func (e *TaggedError) Unwrap() error {
	return e.Err
}

// Tag wraps err with a category. Tags that do not end in "Error" get the
// suffix appended. A nil err stays nil.
func Tag(err error, tag string) error {
	if err == nil {
		return nil
	}
	if !strings.HasSuffix(tag, "Error") {
		tag += "Error"
	}
	return &TaggedError{Tag: tag, Err: err}
}

// TagOf returns the outermost tag on err, if any.
func TagOf(err error) (string, bool) {
	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Tag, true
	}
	return "", false
}

// LogReporter writes reported errors to a zap logger.
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter creates a Reporter backed by logger.
func NewLogReporter(logger *logging.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs err at error level with its tag when present.
func (r *LogReporter) Report(err error) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.Error(err)}
	if tag, ok := TagOf(err); ok {
		fields = append(fields, zap.String("error_tag", tag))
	}
	r.logger.Error("error reported", fields...)
}

// Multi fans a report out to several reporters in order.
func Multi(reporters ...Reporter) Reporter {
	return Func(func(err error) {
		for _, r := range reporters {
			if r != nil {
				r.Report(err)
			}
		}
	})
}
