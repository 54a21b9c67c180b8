package provisioning

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Observer is the structured observability interface used throughout
// provisioning, validation, and teardown.
type Observer interface {
	// Printf emits a free-form progress line.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)

	// WithFields returns an Observer that attaches the fields to every
	// subsequent event.
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType
	Phase     string
	Resource  string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType classifies provisioning events.
type EventType string

const (
	EventPhaseStarted EventType = "phase.started"
	EventPhaseFailed  EventType = "phase.failed"

	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	// EventResourceExists marks an idempotent skip: the resource already
	// matches its spec.
	EventResourceExists  EventType = "resource.exists"
	EventResourceFailed  EventType = "resource.failed"
	EventResourceDeleted EventType = "resource.deleted"

	EventRollbackStarted EventType = "rollback.started"
)

// LogObserver implements Observer on a logrus logger.
type LogObserver struct {
	log    *logrus.Entry
	fields map[string]string
}

// NewLogObserver creates an observer over the standard logrus logger.
func NewLogObserver() *LogObserver {
	return NewLogObserverWith(logrus.StandardLogger())
}

// NewLogObserverWith creates an observer over a specific logger, used by
// tests to capture output.
func NewLogObserverWith(logger *logrus.Logger) *LogObserver {
	return &LogObserver{log: logrus.NewEntry(logger), fields: map[string]string{}}
}

// Printf implements Observer.
func (o *LogObserver) Printf(format string, v ...interface{}) {
	o.entry(nil).Infof(format, v...)
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	entry := o.entry(event.Fields).WithField("event", string(event.Type))
	if event.Phase != "" {
		entry = entry.WithField("phase", event.Phase)
	}
	if event.Resource != "" {
		entry = entry.WithField("resource", event.Resource)
	}

	switch event.Type {
	case EventPhaseFailed, EventResourceFailed:
		entry.Error(event.Message)
	default:
		entry.Info(event.Message)
	}
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LogObserver{log: o.log, fields: merged}
}

func (o *LogObserver) entry(extra map[string]string) *logrus.Entry {
	entry := o.log
	for k, v := range o.fields {
		entry = entry.WithField(k, v)
	}
	for k, v := range extra {
		entry = entry.WithField(k, v)
	}
	return entry
}
