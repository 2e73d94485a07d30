// Package sai defines the switch abstraction object model shared by the
// dispatcher, the metadata tables and every backend: object types, object
// ids, typed attribute values and status codes.
package sai

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ObjectType identifies which schema and backend handler apply to an object.
// Values follow the SAI numbering so they can be exchanged with syncd.
type ObjectType int32

const (
	ObjectTypeNull               ObjectType = 0
	ObjectTypePort               ObjectType = 1
	ObjectTypeLAG                ObjectType = 2
	ObjectTypeVirtualRouter      ObjectType = 3
	ObjectTypeNextHop            ObjectType = 4
	ObjectTypeNextHopGroup       ObjectType = 5
	ObjectTypeRouterInterface    ObjectType = 6
	ObjectTypeSwitch             ObjectType = 33
	ObjectTypeNextHopGroupMember ObjectType = 45
)

const objectTypePrefix = "SAI_OBJECT_TYPE_"

var objectTypeNames = map[ObjectType]string{
	ObjectTypeNull:               "NULL",
	ObjectTypePort:               "PORT",
	ObjectTypeLAG:                "LAG",
	ObjectTypeVirtualRouter:      "VIRTUAL_ROUTER",
	ObjectTypeNextHop:            "NEXT_HOP",
	ObjectTypeNextHopGroup:       "NEXT_HOP_GROUP",
	ObjectTypeRouterInterface:    "ROUTER_INTERFACE",
	ObjectTypeSwitch:             "SWITCH",
	ObjectTypeNextHopGroupMember: "NEXT_HOP_GROUP_MEMBER",
}

// String returns the canonical name, e.g. "SAI_OBJECT_TYPE_NEXT_HOP".
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return objectTypePrefix + name
	}
	return fmt.Sprintf("%s%d", objectTypePrefix, int32(t))
}

// ShortName returns the lowercase, dash-separated form used on the CLI and
// in REST paths, e.g. "next-hop".
func (t ObjectType) ShortName() string {
	if name, ok := objectTypeNames[t]; ok {
		return strings.ReplaceAll(strings.ToLower(name), "_", "-")
	}
	return strconv.Itoa(int(t))
}

// IsValid reports whether t is a known, non-null object type.
func (t ObjectType) IsValid() bool {
	_, ok := objectTypeNames[t]
	return ok && t != ObjectTypeNull
}

// ParseObjectType accepts the canonical name ("SAI_OBJECT_TYPE_NEXT_HOP"),
// the bare suffix ("NEXT_HOP") or the short name ("next-hop").
func ParseObjectType(s string) (ObjectType, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	name = strings.TrimPrefix(name, objectTypePrefix)
	for t, n := range objectTypeNames {
		if n == name && t != ObjectTypeNull {
			return t, nil
		}
	}
	return ObjectTypeNull, fmt.Errorf("%w: %q", ErrInvalidObjectType, s)
}

// ObjectTypes returns every known non-null object type in numeric order.
func ObjectTypes() []ObjectType {
	types := make([]ObjectType, 0, len(objectTypeNames))
	for t := range objectTypeNames {
		if t != ObjectTypeNull {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ObjectID is an opaque handle for one live object. Zero is the null id.
type ObjectID uint64

// NullObjectID is SAI_NULL_OBJECT_ID.
const NullObjectID ObjectID = 0

const oidPrefix = "oid:"

// String renders the id in the ASIC_DB form "oid:0x1a".
func (id ObjectID) String() string {
	return fmt.Sprintf("%s0x%x", oidPrefix, uint64(id))
}

// ParseObjectID accepts "oid:0x1a", "0x1a" or a decimal number.
func ParseObjectID(s string) (ObjectID, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), oidPrefix)
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		v, err = strconv.ParseUint(raw[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(raw, 10, 64)
	}
	if err != nil {
		return NullObjectID, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return ObjectID(v), nil
}

// ObjectKey pairs an object id with its type.
type ObjectKey struct {
	Type ObjectType
	ID   ObjectID
}

func (k ObjectKey) String() string {
	return k.Type.String() + ":" + k.ID.String()
}
