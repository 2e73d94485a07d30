// Package dispatch implements the generic object lifecycle dispatcher that
// every typed API calls into. One Dispatcher validates attributes, owns the
// object id registry and serializes every create, remove, set and get
// across all object types behind a single lock, so lifecycle operations
// are totally ordered.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/registry"
	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

const (
	OpCreate = "create"
	OpRemove = "remove"
	OpSet    = "set"
	OpGet    = "get"
)

// Record describes one completed operation for a Recorder.
type Record struct {
	Op         string
	Type       sai.ObjectType
	ID         sai.ObjectID
	Attributes []sai.Attribute
	Err        error
	Duration   time.Duration
}

// Recorder receives a Record for every operation, in operation order.
// Record is called with the dispatcher lock held and must not call back
// into the dispatcher.
type Recorder interface {
	Record(rec Record)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSequence sets the id source. The default is an in-process counter.
func WithSequence(seq registry.Sequence) Option {
	return func(d *Dispatcher) { d.seq = seq }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRecorder enables the operation audit trail.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// Dispatcher is the generic lifecycle dispatcher. A process shares one
// Dispatcher; its mutex is the process-wide serialization point.
type Dispatcher struct {
	mu       sync.Mutex
	schema   meta.Schema
	seq      registry.Sequence
	registry *registry.Registry
	metrics  *Metrics
	recorder Recorder
}

// New creates a dispatcher validating against schema. A nil schema uses
// the built-in metadata table.
func New(schema meta.Schema, opts ...Option) *Dispatcher {
	if schema == nil {
		schema = meta.Default()
	}
	d := &Dispatcher{schema: schema}
	for _, opt := range opts {
		opt(d)
	}
	d.registry = registry.New(d.seq)
	return d
}

// Schema returns the metadata the dispatcher validates against.
func (d *Dispatcher) Schema() meta.Schema {
	return d.schema
}

// Create validates attrs, allocates an id and asks h to create the object.
// If h fails the id is released and the backend's error returned.
func (d *Dispatcher) Create(t sai.ObjectType, h Handler, attrs []sai.Attribute) (sai.ObjectID, error) {
	start := time.Now()
	if h == nil {
		return sai.NullObjectID, errNoHandler(OpCreate, t)
	}

	// validation happens before the lock and never blocks
	if err := meta.ValidateCreate(d.schema, t, attrs); err != nil {
		d.observe(OpCreate, t, sai.NullObjectID, attrs, err, start)
		return sai.NullObjectID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.create(t, h, attrs)
	d.observe(OpCreate, t, id, attrs, err, start)
	return id, err
}

func (d *Dispatcher) create(t sai.ObjectType, h Handler, attrs []sai.Attribute) (sai.ObjectID, error) {
	id, err := d.registry.Allocate(t)
	if err != nil {
		return sai.NullObjectID, sai.NewBackendError(OpCreate, t, sai.NullObjectID, err)
	}

	if err := h.Create(t, id, attrs); err != nil {
		// rollback: the id is burned, never reissued
		d.registry.Release(id)
		return sai.NullObjectID, sai.NewBackendError(OpCreate, t, id, err)
	}

	if d.metrics != nil {
		d.metrics.created(t)
	}
	return id, nil
}

// Remove asks h to remove a live object. The id is released only if the
// backend succeeds; on failure it stays live so the caller may retry.
func (d *Dispatcher) Remove(t sai.ObjectType, id sai.ObjectID, h Handler) error {
	start := time.Now()
	if h == nil {
		return errNoHandler(OpRemove, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.remove(t, id, h)
	d.observe(OpRemove, t, id, nil, err, start)
	return err
}

func (d *Dispatcher) remove(t sai.ObjectType, id sai.ObjectID, h Handler) error {
	if err := d.checkObject(OpRemove, t, id); err != nil {
		return err
	}

	if err := h.Remove(t, id); err != nil {
		return sai.NewBackendError(OpRemove, t, id, err)
	}

	d.registry.Release(id)
	if d.metrics != nil {
		d.metrics.removed(t)
	}
	return nil
}

// Set validates one attribute and asks h to apply it to a live object.
func (d *Dispatcher) Set(t sai.ObjectType, id sai.ObjectID, h Handler, attr sai.Attribute) error {
	start := time.Now()
	if h == nil {
		return errNoHandler(OpSet, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.set(t, id, h, attr)
	d.observe(OpSet, t, id, []sai.Attribute{attr}, err, start)
	return err
}

func (d *Dispatcher) set(t sai.ObjectType, id sai.ObjectID, h Handler, attr sai.Attribute) error {
	if err := d.checkObject(OpSet, t, id); err != nil {
		return err
	}
	if err := meta.ValidateSet(d.schema, t, attr); err != nil {
		return err
	}
	if err := h.Set(t, id, attr); err != nil {
		return sai.NewBackendError(OpSet, t, id, err)
	}
	return nil
}

// Get fills in the values of attrs from a live object. The ids in attrs
// select what to read; on success every value is populated in place and
// the slice keeps its order and length. On error attrs is left untouched.
func (d *Dispatcher) Get(t sai.ObjectType, id sai.ObjectID, h Handler, attrs []sai.Attribute) error {
	start := time.Now()
	if h == nil {
		return errNoHandler(OpGet, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.get(t, id, h, attrs)
	d.observe(OpGet, t, id, attrs, err, start)
	return err
}

func (d *Dispatcher) get(t sai.ObjectType, id sai.ObjectID, h Handler, attrs []sai.Attribute) error {
	if err := d.checkObject(OpGet, t, id); err != nil {
		return err
	}
	if err := meta.ValidateGet(d.schema, t, attrs); err != nil {
		return err
	}

	got, err := h.Get(t, id, sai.IDs(attrs))
	if err != nil {
		return sai.NewBackendError(OpGet, t, id, err)
	}

	values := make(map[sai.AttrID]sai.Value, len(got))
	for _, a := range got {
		values[a.ID] = a.Value
	}
	for _, a := range attrs {
		if v, ok := values[a.ID]; !ok || !v.IsValid() {
			return sai.NewBackendError(OpGet, t, id, fmt.Errorf("%w: backend returned no value for %s", sai.StatusFailure, a.ID))
		}
	}
	for i := range attrs {
		attrs[i].Value = values[attrs[i].ID]
	}
	return nil
}

// Restore re-registers the objects a persistent handler already holds so
// they can be removed, set and read, and so their ids are never reissued.
// It returns the number of objects newly registered; ids already live are
// skipped. Handlers that are not a Lister have nothing to restore.
func (d *Dispatcher) Restore(h Handler) (int, error) {
	lister, ok := h.(Lister)
	if !ok {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	keys, err := lister.Objects()
	if err != nil {
		return 0, fmt.Errorf("listing backend objects: %w", err)
	}
	restored := 0
	for _, k := range keys {
		if _, live := d.registry.Type(k.ID); live {
			continue
		}
		if err := d.registry.Restore(k.ID, k.Type); err != nil {
			return restored, err
		}
		restored++
		if d.metrics != nil {
			d.metrics.created(k.Type)
		}
	}
	util.WithField("objects", restored).Info("Restored objects from backend")
	return restored, nil
}

// Objects returns a snapshot of the live objects of type t, or of every
// type when t is sai.ObjectTypeNull.
func (d *Dispatcher) Objects(t sai.ObjectType) []sai.ObjectKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Objects(t)
}

// checkObject confirms id is live with type t. Must hold d.mu.
func (d *Dispatcher) checkObject(op string, t sai.ObjectType, id sai.ObjectID) error {
	err := d.registry.Validate(id, t)
	if err == nil {
		return nil
	}
	oe := &sai.ObjectError{Op: op, Type: t, ID: id, Sentinel: sai.ErrObjectNotFound}
	if errors.Is(err, sai.ErrObjectTypeMismatch) {
		oe.Sentinel = sai.ErrObjectTypeMismatch
		oe.Actual, _ = d.registry.Type(id)
	}
	return oe
}

func (d *Dispatcher) observe(op string, t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute, err error, start time.Time) {
	elapsed := time.Since(start)

	log := util.WithObject(t, id).WithField("operation", op)
	switch {
	case err == nil:
		log.Debugf("%s ok in %s", op, elapsed)
	case errors.Is(err, sai.ErrBackendFailure):
		log.Warnf("%s failed: %v", op, err)
	default:
		log.Debugf("%s rejected: %v", op, err)
	}

	if d.metrics != nil {
		d.metrics.observe(op, t, err, elapsed)
	}
	if d.recorder != nil {
		d.recorder.Record(Record{
			Op:         op,
			Type:       t,
			ID:         id,
			Attributes: attrs,
			Err:        err,
			Duration:   elapsed,
		})
	}
}

func errNoHandler(op string, t sai.ObjectType) error {
	return fmt.Errorf("%s %s: %w: no handler", op, t, sai.StatusNotImplemented)
}
