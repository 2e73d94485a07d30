package sai

import (
	"bytes"
	"fmt"
	"net/netip"
	"slices"
)

// AttrID is the canonical metadata name of an attribute, e.g.
// "SAI_NEXT_HOP_ATTR_IP". The key space is scoped per object type.
type AttrID string

// Kind is the semantic kind of an attribute value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindEnum
	KindObjectID
	KindIPAddress
	KindBytes
	KindObjectList
	KindUintList
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindBool:       "bool",
	KindInt:        "int",
	KindUint:       "uint",
	KindEnum:       "enum",
	KindObjectID:   "oid",
	KindIPAddress:  "ip",
	KindBytes:      "bytes",
	KindObjectList: "oid-list",
	KindUintList:   "uint-list",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name used in metadata tables back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s && k != KindInvalid {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown attribute kind %q", s)
}

// Value is a typed attribute value. The zero Value has KindInvalid and is
// what Get leaves in place of an attribute that has not been filled yet.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	u     uint64
	ip    netip.Addr
	raw   []byte
	oids  []ObjectID
	uints []uint64
}

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int returns a signed integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint returns an unsigned integer value.
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// Enum returns an enumeration value. The name is resolved by metadata.
func Enum(v int32) Value { return Value{kind: KindEnum, i: int64(v)} }

// OID returns an object id reference.
func OID(id ObjectID) Value { return Value{kind: KindObjectID, u: uint64(id)} }

// IP returns an IP address value.
func IP(addr netip.Addr) Value { return Value{kind: KindIPAddress, ip: addr} }

// Bytes returns a raw byte value. The slice is copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: bytes.Clone(b)} }

// OIDList returns a list of object id references. The slice is copied.
func OIDList(ids ...ObjectID) Value {
	return Value{kind: KindObjectList, oids: slices.Clone(ids)}
}

// UintList returns a list of unsigned integers. The slice is copied.
func UintList(vals ...uint64) Value {
	return Value{kind: KindUintList, uints: slices.Clone(vals)}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value has been set.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsBool() bool          { return v.b }
func (v Value) AsInt() int64          { return v.i }
func (v Value) AsUint() uint64        { return v.u }
func (v Value) AsEnum() int32         { return int32(v.i) }
func (v Value) AsOID() ObjectID       { return ObjectID(v.u) }
func (v Value) AsIP() netip.Addr      { return v.ip }
func (v Value) AsBytes() []byte       { return bytes.Clone(v.raw) }
func (v Value) AsOIDList() []ObjectID { return slices.Clone(v.oids) }
func (v Value) AsUintList() []uint64  { return slices.Clone(v.uints) }

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt, KindEnum:
		return v.i == o.i
	case KindUint, KindObjectID:
		return v.u == o.u
	case KindIPAddress:
		return v.ip == o.ip
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindObjectList:
		return slices.Equal(v.oids, o.oids)
	case KindUintList:
		return slices.Equal(v.uints, o.uints)
	}
	return false
}

// String renders the value without metadata; enums print as numbers.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt, KindEnum:
		return fmt.Sprintf("%d", v.i)
	case KindUint:
		return fmt.Sprintf("%d", v.u)
	case KindObjectID:
		return ObjectID(v.u).String()
	case KindIPAddress:
		return v.ip.String()
	case KindBytes:
		return fmt.Sprintf("%x", v.raw)
	case KindObjectList:
		return fmt.Sprintf("%v", v.oids)
	case KindUintList:
		return fmt.Sprintf("%v", v.uints)
	}
	return "<unset>"
}

// Attribute is one (id, typed value) pair.
type Attribute struct {
	ID    AttrID
	Value Value
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s=%s", a.ID, a.Value)
}

// Request builds an attribute list for a get: ids set, values unset.
func Request(ids ...AttrID) []Attribute {
	attrs := make([]Attribute, len(ids))
	for i, id := range ids {
		attrs[i].ID = id
	}
	return attrs
}

// IDs returns the attribute ids of a list, in order.
func IDs(attrs []Attribute) []AttrID {
	ids := make([]AttrID, len(attrs))
	for i, a := range attrs {
		ids[i] = a.ID
	}
	return ids
}
