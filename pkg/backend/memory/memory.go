// Package memory is an in-process backend that simulates a switch. It
// records how often each operation was called and can inject failures,
// which makes it the usual handler in tests.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/sai"
)

var (
	_ dispatch.Handler = (*Backend)(nil)
	_ dispatch.Lister  = (*Backend)(nil)
)

type object struct {
	t     sai.ObjectType
	attrs map[sai.AttrID]sai.Value
}

// Backend holds objects in a map.
type Backend struct {
	mu      sync.Mutex
	objects map[sai.ObjectID]*object
	calls   map[string]int
	faults  map[string]error
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		objects: make(map[sai.ObjectID]*object),
		calls:   make(map[string]int),
		faults:  make(map[string]error),
	}
}

// FailNext makes the next call of op ("create", "remove", "set", "get")
// return err without touching any state.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[op] = err
}

// Calls returns how many times op was invoked, failed calls included.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// begin counts the call and consumes a pending fault. Must hold b.mu.
func (b *Backend) begin(op string) error {
	b.calls[op]++
	if err, ok := b.faults[op]; ok {
		delete(b.faults, op)
		return err
	}
	return nil
}

// Create implements dispatch.Handler.
func (b *Backend) Create(t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(dispatch.OpCreate); err != nil {
		return err
	}
	if _, exists := b.objects[id]; exists {
		return fmt.Errorf("%w: %s", sai.StatusItemAlreadyExists, id)
	}

	obj := &object{t: t, attrs: make(map[sai.AttrID]sai.Value, len(attrs))}
	for _, a := range attrs {
		obj.attrs[a.ID] = a.Value
	}
	b.objects[id] = obj
	return nil
}

// Remove implements dispatch.Handler.
func (b *Backend) Remove(t sai.ObjectType, id sai.ObjectID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(dispatch.OpRemove); err != nil {
		return err
	}
	if _, err := b.lookup(t, id); err != nil {
		return err
	}
	delete(b.objects, id)
	return nil
}

// Set implements dispatch.Handler.
func (b *Backend) Set(t sai.ObjectType, id sai.ObjectID, attr sai.Attribute) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(dispatch.OpSet); err != nil {
		return err
	}
	obj, err := b.lookup(t, id)
	if err != nil {
		return err
	}
	obj.attrs[attr.ID] = attr.Value
	return nil
}

// Get implements dispatch.Handler.
func (b *Backend) Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(dispatch.OpGet); err != nil {
		return nil, err
	}
	obj, err := b.lookup(t, id)
	if err != nil {
		return nil, err
	}

	out := make([]sai.Attribute, 0, len(ids))
	for _, attrID := range ids {
		v, ok := obj.attrs[attrID]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s", sai.StatusItemNotFound, id, attrID)
		}
		out = append(out, sai.Attribute{ID: attrID, Value: v})
	}
	return out, nil
}

// Objects implements dispatch.Lister.
func (b *Backend) Objects() ([]sai.ObjectKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]sai.ObjectKey, 0, len(b.objects))
	for id, obj := range b.objects {
		keys = append(keys, sai.ObjectKey{Type: obj.t, ID: id})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

func (b *Backend) lookup(t sai.ObjectType, id sai.ObjectID) (*object, error) {
	obj, ok := b.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sai.StatusItemNotFound, id)
	}
	if obj.t != t {
		return nil, fmt.Errorf("%w: %s is %s", sai.StatusInvalidObjectType, id, obj.t)
	}
	return obj, nil
}
