package resilience

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/resilience-lab/internal/infrastructure/logging"
)

// EventType names something that happened on a breaker.
type EventType string

const (
	EventOpen     EventType = "open"
	EventHalfOpen EventType = "half-open"
	EventClose    EventType = "close"
	EventFallback EventType = "fallback"
	EventSuccess  EventType = "success"
	EventFailure  EventType = "failure"
	EventTimeout  EventType = "timeout"
	EventReject   EventType = "reject"
)

// Event is delivered to Settings.OnEvent. From and To are only set on
// transitions; Duration only on call outcomes.
type Event struct {
	Type     EventType
	Circuit  string
	From     State
	To       State
	Err      error
	Duration time.Duration
	At       time.Time
}

// IsTransition reports whether the event is a state change.
func (e Event) IsTransition() bool {
	switch e.Type {
	case EventOpen, EventHalfOpen, EventClose:
		return true
	}
	return false
}

func transitionEvent(to State) EventType {
	switch to {
	case StateOpen:
		return EventOpen
	case StateHalfOpen:
		return EventHalfOpen
	default:
		return EventClose
	}
}

func outcomeEvent(o Outcome) EventType {
	switch o {
	case OutcomeSuccess:
		return EventSuccess
	case OutcomeTimeout:
		return EventTimeout
	case OutcomeReject:
		return EventReject
	default:
		return EventFailure
	}
}

// LogEvents returns a listener that logs transitions at warn/info and
// fallbacks at debug. Per-call outcomes are left to metrics.
func LogEvents(logger *logging.Logger) func(Event) {
	return func(ev Event) {
		switch ev.Type {
		case EventOpen:
			logger.Warn("Circuit breaker opened",
				zap.String("circuit", ev.Circuit),
				zap.Stringer("from", ev.From),
				zap.Error(ev.Err))
		case EventHalfOpen:
			logger.Info("Circuit breaker half-open, attempting reset",
				zap.String("circuit", ev.Circuit))
		case EventClose:
			logger.Info("Circuit breaker closed",
				zap.String("circuit", ev.Circuit),
				zap.Stringer("from", ev.From))
		case EventFallback:
			logger.Debug("Serving fallback",
				zap.String("circuit", ev.Circuit),
				zap.Error(ev.Err))
		}
	}
}
