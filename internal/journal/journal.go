// Package journal records user-level lifecycle events ("MODULE_ACTIVATED:
// GEOM") for later inspection, independently of the diagnostic log.
package journal

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"modulehost/internal/events"
)

// TimeLayout is the timestamp format of journal lines.
const TimeLayout = "20060102-150405"

// Journal stores user events.
type Journal interface {
	Record(event string) error
	Close() error
}

// Entry is one recorded event.
type Entry struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
}

// Reader is implemented by journals that can list what they recorded.
type Reader interface {
	Entries(limit int) ([]Entry, error)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(string) error { return nil }
func (Nop) Close() error        { return nil }

// Describe renders the journal text of a lifecycle event. Only activation
// and deactivation are journaled.
func Describe(evt events.Event) (string, bool) {
	switch evt.Kind {
	case events.ModuleActivated:
		return fmt.Sprintf("MODULE_ACTIVATED: %s", evt.Module), true
	case events.ModuleDeactivated:
		return fmt.Sprintf("MODULE_DEACTIVATED: %s", evt.Module), true
	}
	return "", false
}

// Attach records every journaled event published on bus.
func Attach(bus *events.Bus, j Journal, logger *zap.Logger) events.Subscription {
	return bus.Subscribe(func(evt events.Event) {
		text, ok := Describe(evt)
		if !ok {
			return
		}
		if err := j.Record(text); err != nil {
			logger.Warn("Failed to record user event",
				zap.String("event", text),
				zap.Error(err))
		}
	})
}
