// Package registry tracks which object ids are live and what type each one
// is. Ids are drawn from a monotonic Sequence and never reissued.
//
// A Registry is not safe for concurrent use. The dispatcher only touches it
// while holding its serialization lock.
package registry

import (
	"fmt"
	"sort"

	"github.com/newtron-network/sairedis/pkg/sai"
)

// Sequence hands out strictly increasing id values. It must never return a
// value it has returned before, including across restarts when the backing
// store persists objects.
type Sequence interface {
	Next() (uint64, error)
}

// Counter is an in-process Sequence starting at 1.
type Counter struct {
	last uint64
}

// Next implements Sequence.
func (c *Counter) Next() (uint64, error) {
	if c.last == ^uint64(0) {
		return 0, fmt.Errorf("object id space exhausted")
	}
	c.last++
	return c.last, nil
}

// Registry is the set of live object ids.
type Registry struct {
	seq  Sequence
	live map[sai.ObjectID]sai.ObjectType
	// high is the largest id ever seen, issued or restored
	high sai.ObjectID
}

// New creates a registry drawing ids from seq. A nil seq uses a Counter.
func New(seq Sequence) *Registry {
	if seq == nil {
		seq = &Counter{}
	}
	return &Registry{
		seq:  seq,
		live: make(map[sai.ObjectID]sai.ObjectType),
	}
}

// Allocate issues a fresh id and registers it as live with type t.
func (r *Registry) Allocate(t sai.ObjectType) (sai.ObjectID, error) {
	for {
		n, err := r.seq.Next()
		if err != nil {
			return sai.NullObjectID, fmt.Errorf("allocating %s id: %w", t, err)
		}
		id := sai.ObjectID(n)
		// skip values at or below anything restored from a backend
		if id == sai.NullObjectID || id <= r.high {
			continue
		}
		r.high = id
		r.live[id] = t
		return id, nil
	}
}

// Validate confirms id is live and has type expected.
func (r *Registry) Validate(id sai.ObjectID, expected sai.ObjectType) error {
	actual, ok := r.live[id]
	if !ok {
		return sai.ErrObjectNotFound
	}
	if actual != expected {
		return fmt.Errorf("%w: %s is %s", sai.ErrObjectTypeMismatch, id, actual)
	}
	return nil
}

// Release marks id permanently dead. Releasing an id that is not live is a
// no-op.
func (r *Registry) Release(id sai.ObjectID) {
	delete(r.live, id)
}

// Restore registers an id that a backend already holds, e.g. after a
// restart. Later allocations never return a value at or below it.
func (r *Registry) Restore(id sai.ObjectID, t sai.ObjectType) error {
	if id == sai.NullObjectID {
		return fmt.Errorf("cannot restore the null object id")
	}
	if existing, ok := r.live[id]; ok && existing != t {
		return fmt.Errorf("restore %s as %s: %w: already live as %s", id, t, sai.ErrObjectTypeMismatch, existing)
	}
	r.live[id] = t
	if id > r.high {
		r.high = id
	}
	return nil
}

// Type returns the type of a live id.
func (r *Registry) Type(id sai.ObjectID) (sai.ObjectType, bool) {
	t, ok := r.live[id]
	return t, ok
}

// Len returns the number of live ids.
func (r *Registry) Len() int {
	return len(r.live)
}

// Objects returns the live objects of type t, or of every type when t is
// ObjectTypeNull, sorted by id.
func (r *Registry) Objects(t sai.ObjectType) []sai.ObjectKey {
	var keys []sai.ObjectKey
	for id, ot := range r.live {
		if t == sai.ObjectTypeNull || ot == t {
			keys = append(keys, sai.ObjectKey{Type: ot, ID: id})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys
}
