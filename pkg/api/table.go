package api

import (
	"fmt"

	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/sai"
)

// Table hands out method tables that all share one dispatcher, and with it
// one lock and one id registry.
type Table struct {
	dispatcher *dispatch.Dispatcher
	handler    dispatch.Handler
}

// NewTable creates a table whose method tables use h for every object type.
func NewTable(d *dispatch.Dispatcher, h dispatch.Handler) *Table {
	return &Table{dispatcher: d, handler: h}
}

// Dispatcher returns the shared dispatcher.
func (t *Table) Dispatcher() *dispatch.Dispatcher {
	return t.dispatcher
}

// Object returns the generic method table for any type the metadata knows.
func (t *Table) Object(ot sai.ObjectType) (*ObjectAPI, error) {
	if _, ok := t.dispatcher.Schema().SchemaFor(ot); !ok {
		return nil, fmt.Errorf("object %s: %w", ot, sai.ErrInvalidObjectType)
	}
	return t.object(ot), nil
}

func (t *Table) object(ot sai.ObjectType) *ObjectAPI {
	return &ObjectAPI{Type: ot, Handler: t.handler, Dispatcher: t.dispatcher}
}

// Query returns the method table for api: a *NextHopAPI, *NextHopGroupAPI
// or *RouterInterfaceAPI for those APIs, and a *ObjectAPI for the other
// object APIs. APIs with no table fail with StatusNotImplemented, unknown
// ones with StatusInvalidParameter.
func (t *Table) Query(api sai.API) (any, error) {
	switch api {
	case sai.APINextHop:
		return &NextHopAPI{obj: *t.object(sai.ObjectTypeNextHop)}, nil
	case sai.APINextHopGroup:
		return &NextHopGroupAPI{
			group:  *t.object(sai.ObjectTypeNextHopGroup),
			member: *t.object(sai.ObjectTypeNextHopGroupMember),
		}, nil
	case sai.APIRouterInterface:
		return &RouterInterfaceAPI{obj: *t.object(sai.ObjectTypeRouterInterface)}, nil
	case sai.APISwitch:
		return t.object(sai.ObjectTypeSwitch), nil
	case sai.APIPort:
		return t.object(sai.ObjectTypePort), nil
	case sai.APIVirtualRouter:
		return t.object(sai.ObjectTypeVirtualRouter), nil
	case sai.APILAG:
		return t.object(sai.ObjectTypeLAG), nil
	case sai.APIRoute:
		// route entries are keyed by prefix, not by object id
		return nil, fmt.Errorf("query %s: %w", api, sai.StatusNotImplemented)
	}
	return nil, fmt.Errorf("query %s: %w", api, sai.StatusInvalidParameter)
}
