package meta

import (
	"fmt"

	"github.com/newtron-network/sairedis/pkg/sai"
)

func lookup(s Schema, op string, t sai.ObjectType) (*ObjectSchema, error) {
	sch, ok := s.SchemaFor(t)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", op, t, sai.ErrInvalidObjectType)
	}
	return sch, nil
}

// ValidateCreate checks an attribute list passed to create: every id known
// and writable on create, no duplicates, kinds matching, and every
// mandatory attribute present.
func ValidateCreate(s Schema, t sai.ObjectType, attrs []sai.Attribute) error {
	sch, err := lookup(s, "create", t)
	if err != nil {
		return err
	}
	if err := checkList(sch, "create", attrs, true); err != nil {
		return err
	}

	present := make(map[sai.AttrID]bool, len(attrs))
	for _, a := range attrs {
		present[a.ID] = true
	}
	for _, id := range sch.Mandatory() {
		if !present[id] {
			return &sai.AttributeError{Op: "create", Type: t, Attr: id, Index: -1, Sentinel: sai.ErrMandatoryAttributeMissing}
		}
	}
	return nil
}

// ValidateSet checks the single attribute passed to set.
func ValidateSet(s Schema, t sai.ObjectType, attr sai.Attribute) error {
	sch, err := lookup(s, "set", t)
	if err != nil {
		return err
	}
	md, err := checkAttr(sch, "set", 0, attr, true)
	if err != nil {
		return err
	}
	if md.Access != AccessCreateAndSet {
		return &sai.AttributeError{Op: "set", Type: t, Attr: attr.ID, Index: 0,
			Detail: string(md.Access), Sentinel: sai.ErrAttributeNotSettable}
	}
	return nil
}

// ValidateGet checks the ids requested by get. Values are ignored.
func ValidateGet(s Schema, t sai.ObjectType, attrs []sai.Attribute) error {
	sch, err := lookup(s, "get", t)
	if err != nil {
		return err
	}
	return checkList(sch, "get", attrs, false)
}

func checkList(sch *ObjectSchema, op string, attrs []sai.Attribute, withValues bool) error {
	seen := make(map[sai.AttrID]int, len(attrs))
	for i, a := range attrs {
		if first, dup := seen[a.ID]; dup {
			return &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i,
				Detail: fmt.Sprintf("first at index %d", first), Sentinel: sai.ErrDuplicateAttributeKey}
		}
		seen[a.ID] = i

		md, err := checkAttr(sch, op, i, a, withValues)
		if err != nil {
			return err
		}
		if op == "create" && md.Access == AccessReadOnly {
			return &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i,
				Detail: string(md.Access), Sentinel: sai.ErrAttributeNotSettable}
		}
	}
	return nil
}

func checkAttr(sch *ObjectSchema, op string, i int, a sai.Attribute, withValue bool) (*AttrMetadata, error) {
	md, ok := sch.Attr(a.ID)
	if !ok {
		return nil, &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i, Sentinel: sai.ErrInvalidAttributeKey}
	}
	if !withValue {
		return md, nil
	}
	if a.Value.Kind() != md.Kind {
		return nil, &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i,
			Detail: fmt.Sprintf("got %s, want %s", a.Value.Kind(), md.Kind), Sentinel: sai.ErrAttributeTypeMismatch}
	}
	if md.Kind == sai.KindIPAddress && !a.Value.AsIP().IsValid() {
		return nil, &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i,
			Detail: "zero ip address", Sentinel: sai.ErrAttributeTypeMismatch}
	}
	if md.Kind == sai.KindEnum {
		if _, ok := md.EnumName(a.Value.AsEnum()); !ok {
			return nil, &sai.AttributeError{Op: op, Type: sch.Type, Attr: a.ID, Index: i,
				Detail: fmt.Sprintf("enum value %d out of range", a.Value.AsEnum()), Sentinel: sai.ErrAttributeTypeMismatch}
		}
	}
	return md, nil
}
