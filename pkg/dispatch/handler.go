package dispatch

import "github.com/newtron-network/sairedis/pkg/sai"

// Handler performs the real work for an object family: committing it to
// ASIC_DB, a SQL store, or an in-memory simulation. The dispatcher calls
// at most one Handler method per operation and always while holding its
// lock, so a Handler serving a single dispatcher sees a strict total order
// of calls. Handlers shared across dispatchers manage their own locking.
//
// Errors are opaque to the dispatcher. Returning a sai.Status (or wrapping
// one) preserves that code for callers.
type Handler interface {
	// Create commits a new object under an id the dispatcher allocated.
	Create(t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute) error

	// Remove deletes the object. On error the object must be unchanged.
	Remove(t sai.ObjectType, id sai.ObjectID) error

	// Set replaces one attribute's value.
	Set(t sai.ObjectType, id sai.ObjectID, attr sai.Attribute) error

	// Get returns the values of the requested attributes. Every requested
	// id must be present in the result or an error returned.
	Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error)
}

// Lister is implemented by handlers whose objects outlive the process.
// The dispatcher uses it to re-register existing objects on startup.
type Lister interface {
	Objects() ([]sai.ObjectKey, error)
}
