package meta

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/newtron-network/sairedis/pkg/sai"
)

// NullField is the SONiC placeholder written for an object with no
// attributes, so the hash key still exists.
const NullField = "NULL"

// FormatValue renders v in the ASIC_DB string encoding for attribute md.
func FormatValue(md *AttrMetadata, v sai.Value) (string, error) {
	if v.Kind() != md.Kind {
		return "", fmt.Errorf("%s: %w: got %s, want %s", md.ID, sai.ErrAttributeTypeMismatch, v.Kind(), md.Kind)
	}

	switch md.Kind {
	case sai.KindBool:
		return strconv.FormatBool(v.AsBool()), nil
	case sai.KindInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case sai.KindUint:
		return strconv.FormatUint(v.AsUint(), 10), nil
	case sai.KindEnum:
		name, ok := md.EnumName(v.AsEnum())
		if !ok {
			return "", fmt.Errorf("%s: %w: enum value %d out of range", md.ID, sai.ErrAttributeTypeMismatch, v.AsEnum())
		}
		return name, nil
	case sai.KindObjectID:
		return v.AsOID().String(), nil
	case sai.KindIPAddress:
		return v.AsIP().String(), nil
	case sai.KindBytes:
		return hex.EncodeToString(v.AsBytes()), nil
	case sai.KindObjectList:
		ids := v.AsOIDList()
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = id.String()
		}
		return formatList(parts), nil
	case sai.KindUintList:
		vals := v.AsUintList()
		parts := make([]string, len(vals))
		for i, u := range vals {
			parts[i] = strconv.FormatUint(u, 10)
		}
		return formatList(parts), nil
	}
	return "", fmt.Errorf("%s: unsupported kind %s", md.ID, md.Kind)
}

// ParseValue decodes s according to attribute md.
func ParseValue(md *AttrMetadata, s string) (sai.Value, error) {
	switch md.Kind {
	case sai.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: invalid bool %q", md.ID, s)
		}
		return sai.Bool(b), nil
	case sai.KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: invalid int %q", md.ID, s)
		}
		return sai.Int(i), nil
	case sai.KindUint:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: invalid uint %q", md.ID, s)
		}
		return sai.Uint(u), nil
	case sai.KindEnum:
		if v, ok := md.EnumValue(s); ok {
			return sai.Enum(v), nil
		}
		// numeric form, as written by older producers
		if n, err := strconv.ParseInt(s, 10, 32); err == nil {
			if _, ok := md.EnumName(int32(n)); ok {
				return sai.Enum(int32(n)), nil
			}
		}
		return sai.Value{}, fmt.Errorf("%s: unknown enum value %q", md.ID, s)
	case sai.KindObjectID:
		id, err := sai.ParseObjectID(s)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: %w", md.ID, err)
		}
		return sai.OID(id), nil
	case sai.KindIPAddress:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: invalid ip %q", md.ID, s)
		}
		return sai.IP(addr), nil
	case sai.KindBytes:
		b, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: invalid bytes %q", md.ID, s)
		}
		return sai.Bytes(b), nil
	case sai.KindObjectList:
		parts, err := parseList(s)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: %w", md.ID, err)
		}
		ids := make([]sai.ObjectID, len(parts))
		for i, p := range parts {
			if ids[i], err = sai.ParseObjectID(p); err != nil {
				return sai.Value{}, fmt.Errorf("%s: %w", md.ID, err)
			}
		}
		return sai.OIDList(ids...), nil
	case sai.KindUintList:
		parts, err := parseList(s)
		if err != nil {
			return sai.Value{}, fmt.Errorf("%s: %w", md.ID, err)
		}
		vals := make([]uint64, len(parts))
		for i, p := range parts {
			if vals[i], err = strconv.ParseUint(p, 10, 64); err != nil {
				return sai.Value{}, fmt.Errorf("%s: invalid list element %q", md.ID, p)
			}
		}
		return sai.UintList(vals...), nil
	}
	return sai.Value{}, fmt.Errorf("%s: unsupported kind %s", md.ID, md.Kind)
}

// lists are written "count:e1,e2,..."
func formatList(parts []string) string {
	return strconv.Itoa(len(parts)) + ":" + strings.Join(parts, ",")
}

func parseList(s string) ([]string, error) {
	countStr, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid list %q: missing count", s)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("invalid list %q: bad count", s)
	}
	if count == 0 {
		if rest != "" && rest != "null" {
			return nil, fmt.Errorf("invalid list %q: count 0 with elements", s)
		}
		return nil, nil
	}
	parts := strings.Split(rest, ",")
	if len(parts) != count {
		return nil, fmt.Errorf("invalid list %q: count %d, got %d elements", s, count, len(parts))
	}
	return parts, nil
}

// Serialize converts an attribute list into ASIC_DB hash fields. An empty
// list yields the NULL placeholder field.
func Serialize(s Schema, t sai.ObjectType, attrs []sai.Attribute) (map[string]string, error) {
	sch, err := lookup(s, "serialize", t)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(attrs))
	if len(attrs) == 0 {
		fields[NullField] = NullField
		return fields, nil
	}
	for _, a := range attrs {
		md, ok := sch.Attr(a.ID)
		if !ok {
			return nil, fmt.Errorf("serialize %s: %w: %s", t, sai.ErrInvalidAttributeKey, a.ID)
		}
		val, err := FormatValue(md, a.Value)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", t, err)
		}
		fields[string(a.ID)] = val
	}
	return fields, nil
}

// Deserialize converts ASIC_DB hash fields back into attributes, sorted by
// id. The NULL placeholder is skipped.
func Deserialize(s Schema, t sai.ObjectType, fields map[string]string) ([]sai.Attribute, error) {
	sch, err := lookup(s, "deserialize", t)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != NullField {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	attrs := make([]sai.Attribute, 0, len(names))
	for _, name := range names {
		md, ok := sch.Attr(sai.AttrID(name))
		if !ok {
			return nil, fmt.Errorf("deserialize %s: %w: %s", t, sai.ErrInvalidAttributeKey, name)
		}
		v, err := ParseValue(md, fields[name])
		if err != nil {
			return nil, fmt.Errorf("deserialize %s: %w", t, err)
		}
		attrs = append(attrs, sai.Attribute{ID: md.ID, Value: v})
	}
	return attrs, nil
}

// ParseAttribute parses a "name=value" pair typed on the command line or
// sent over REST, resolving the kind from metadata.
func ParseAttribute(s Schema, t sai.ObjectType, id sai.AttrID, value string) (sai.Attribute, error) {
	sch, err := lookup(s, "parse", t)
	if err != nil {
		return sai.Attribute{}, err
	}
	md, ok := sch.Attr(id)
	if !ok {
		return sai.Attribute{}, &sai.AttributeError{Op: "parse", Type: t, Attr: id, Index: -1, Sentinel: sai.ErrInvalidAttributeKey}
	}
	v, err := ParseValue(md, value)
	if err != nil {
		return sai.Attribute{}, &sai.AttributeError{Op: "parse", Type: t, Attr: id, Index: -1,
			Detail: err.Error(), Sentinel: sai.ErrAttributeTypeMismatch}
	}
	return sai.Attribute{ID: id, Value: v}, nil
}

// FormatAttribute renders one attribute's value for display.
func FormatAttribute(s Schema, t sai.ObjectType, a sai.Attribute) string {
	if !a.Value.IsValid() {
		return ""
	}
	if sch, ok := s.SchemaFor(t); ok {
		if md, ok := sch.Attr(a.ID); ok {
			if out, err := FormatValue(md, a.Value); err == nil {
				return out
			}
		}
	}
	return a.Value.String()
}
