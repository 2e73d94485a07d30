// Package api exposes the typed per-object method tables callers use.
// Every method forwards to the shared dispatcher with a fixed object type
// and handler; none of them lock or validate on their own.
package api

import (
	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/sai"
)

// ObjectAPI binds one object type and its backend handler to a dispatcher.
type ObjectAPI struct {
	Type       sai.ObjectType
	Handler    dispatch.Handler
	Dispatcher *dispatch.Dispatcher
}

// Create creates an object and returns its id.
func (a *ObjectAPI) Create(attrs []sai.Attribute) (sai.ObjectID, error) {
	return a.Dispatcher.Create(a.Type, a.Handler, attrs)
}

// Remove removes the object id.
func (a *ObjectAPI) Remove(id sai.ObjectID) error {
	return a.Dispatcher.Remove(a.Type, id, a.Handler)
}

// Set changes one attribute of the object id.
func (a *ObjectAPI) Set(id sai.ObjectID, attr sai.Attribute) error {
	return a.Dispatcher.Set(a.Type, id, a.Handler, attr)
}

// Get fills in the values of attrs from the object id.
func (a *ObjectAPI) Get(id sai.ObjectID, attrs []sai.Attribute) error {
	return a.Dispatcher.Get(a.Type, id, a.Handler, attrs)
}

// NextHopAPI is the next hop method table.
type NextHopAPI struct {
	obj ObjectAPI
}

func (a *NextHopAPI) CreateNextHop(attrs []sai.Attribute) (sai.ObjectID, error) {
	return a.obj.Create(attrs)
}

func (a *NextHopAPI) RemoveNextHop(id sai.ObjectID) error {
	return a.obj.Remove(id)
}

func (a *NextHopAPI) SetNextHopAttribute(id sai.ObjectID, attr sai.Attribute) error {
	return a.obj.Set(id, attr)
}

func (a *NextHopAPI) GetNextHopAttribute(id sai.ObjectID, attrs []sai.Attribute) error {
	return a.obj.Get(id, attrs)
}

// NextHopGroupAPI is the next hop group method table. Group members are
// managed through the same table.
type NextHopGroupAPI struct {
	group  ObjectAPI
	member ObjectAPI
}

func (a *NextHopGroupAPI) CreateNextHopGroup(attrs []sai.Attribute) (sai.ObjectID, error) {
	return a.group.Create(attrs)
}

func (a *NextHopGroupAPI) RemoveNextHopGroup(id sai.ObjectID) error {
	return a.group.Remove(id)
}

func (a *NextHopGroupAPI) SetNextHopGroupAttribute(id sai.ObjectID, attr sai.Attribute) error {
	return a.group.Set(id, attr)
}

func (a *NextHopGroupAPI) GetNextHopGroupAttribute(id sai.ObjectID, attrs []sai.Attribute) error {
	return a.group.Get(id, attrs)
}

func (a *NextHopGroupAPI) CreateNextHopGroupMember(attrs []sai.Attribute) (sai.ObjectID, error) {
	return a.member.Create(attrs)
}

func (a *NextHopGroupAPI) RemoveNextHopGroupMember(id sai.ObjectID) error {
	return a.member.Remove(id)
}

func (a *NextHopGroupAPI) SetNextHopGroupMemberAttribute(id sai.ObjectID, attr sai.Attribute) error {
	return a.member.Set(id, attr)
}

func (a *NextHopGroupAPI) GetNextHopGroupMemberAttribute(id sai.ObjectID, attrs []sai.Attribute) error {
	return a.member.Get(id, attrs)
}

// RouterInterfaceAPI is the router interface method table.
type RouterInterfaceAPI struct {
	obj ObjectAPI
}

func (a *RouterInterfaceAPI) CreateRouterInterface(attrs []sai.Attribute) (sai.ObjectID, error) {
	return a.obj.Create(attrs)
}

func (a *RouterInterfaceAPI) RemoveRouterInterface(id sai.ObjectID) error {
	return a.obj.Remove(id)
}

func (a *RouterInterfaceAPI) SetRouterInterfaceAttribute(id sai.ObjectID, attr sai.Attribute) error {
	return a.obj.Set(id, attr)
}

func (a *RouterInterfaceAPI) GetRouterInterfaceAttribute(id sai.ObjectID, attrs []sai.Attribute) error {
	return a.obj.Get(id, attrs)
}
