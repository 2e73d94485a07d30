package audit

import (
	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/util"
)

var _ dispatch.Recorder = (*Recorder)(nil)

// Recorder turns dispatcher records into audit events.
type Recorder struct {
	logger  Logger
	schema  meta.Schema
	backend string
}

// NewRecorder logs to logger, formatting attribute values with schema.
func NewRecorder(logger Logger, schema meta.Schema, backend string) *Recorder {
	if schema == nil {
		schema = meta.Default()
	}
	return &Recorder{logger: logger, schema: schema, backend: backend}
}

// Record implements dispatch.Recorder. Gets are not audited since they
// change nothing. A failed write is logged and otherwise ignored.
func (r *Recorder) Record(rec dispatch.Record) {
	if rec.Op == dispatch.OpGet {
		return
	}

	attrs := make(map[string]string, len(rec.Attributes))
	for _, a := range rec.Attributes {
		attrs[string(a.ID)] = meta.FormatAttribute(r.schema, rec.Type, a)
	}

	event := NewEvent(rec.Op, rec.Type, rec.ID).
		WithBackend(r.backend).
		WithAttributes(attrs).
		WithResult(rec.Err).
		WithDuration(rec.Duration)
	if err := r.logger.Log(event); err != nil {
		util.WithOperation(rec.Op).Warnf("audit: %v", err)
	}
}
