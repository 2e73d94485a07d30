// Package audit keeps a JSON-lines trail of every dispatched operation.
package audit

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/newtron-network/sairedis/pkg/sai"
)

// Event is one audited operation.
type Event struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Backend    string            `json:"backend,omitempty"`
	Operation  string            `json:"operation"`
	ObjectType string            `json:"object_type"`
	ObjectID   string            `json:"oid,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Status     string            `json:"status"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Filter selects events in Query. Zero fields match everything.
type Filter struct {
	Backend     string
	Operation   string
	ObjectType  string
	ObjectID    string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates an event for op on the object (t, id). A null id is
// left out, as for a create that never allocated one.
func NewEvent(op string, t sai.ObjectType, id sai.ObjectID) *Event {
	e := &Event{
		ID:         generateID(),
		Timestamp:  time.Now(),
		Operation:  op,
		ObjectType: t.String(),
	}
	if id != sai.NullObjectID {
		e.ObjectID = id.String()
	}
	return e
}

// WithBackend records which backend served the operation.
func (e *Event) WithBackend(name string) *Event {
	e.Backend = name
	return e
}

// WithAttributes records attribute values in display form.
func (e *Event) WithAttributes(attrs map[string]string) *Event {
	if len(attrs) > 0 {
		e.Attributes = attrs
	}
	return e
}

// WithResult records the outcome: the SAI status of err, and its message.
func (e *Event) WithResult(err error) *Event {
	e.Status = sai.StatusOf(err).String()
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

var idSeq atomic.Uint64

// generateID is unique within a process even when two events share a
// nanosecond timestamp.
func generateID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + strconv.FormatUint(idSeq.Add(1), 10)
}
