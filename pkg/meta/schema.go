// Package meta holds the attribute metadata tables: which attributes each
// object type accepts, their kinds and when they may be written. It also
// validates attribute lists and converts values to and from the ASIC_DB
// string encoding.
package meta

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

// Access describes when an attribute may be written.
type Access string

const (
	AccessCreateOnly   Access = "create_only"
	AccessCreateAndSet Access = "create_and_set"
	AccessReadOnly     Access = "read_only"
)

// AttrMetadata describes one attribute of one object type.
type AttrMetadata struct {
	ID        sai.AttrID
	Kind      sai.Kind
	Access    Access
	Mandatory bool     // mandatory on create
	Enum      []string // enum value names, indexed by value
}

// EnumName returns the metadata name of an enum value.
func (m *AttrMetadata) EnumName(v int32) (string, bool) {
	if v < 0 || int(v) >= len(m.Enum) {
		return "", false
	}
	return m.Enum[v], true
}

// EnumValue returns the value of an enum name.
func (m *AttrMetadata) EnumValue(name string) (int32, bool) {
	for i, n := range m.Enum {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

// ObjectSchema is the set of attributes known for one object type.
type ObjectSchema struct {
	Type  sai.ObjectType
	attrs map[sai.AttrID]*AttrMetadata
	order []sai.AttrID
}

// Attr looks up one attribute.
func (s *ObjectSchema) Attr(id sai.AttrID) (*AttrMetadata, bool) {
	m, ok := s.attrs[id]
	return m, ok
}

// Attrs returns the attribute metadata in table order.
func (s *ObjectSchema) Attrs() []*AttrMetadata {
	out := make([]*AttrMetadata, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.attrs[id])
	}
	return out
}

// Mandatory returns the ids of the attributes required on create.
func (s *ObjectSchema) Mandatory() []sai.AttrID {
	var ids []sai.AttrID
	for _, id := range s.order {
		if s.attrs[id].Mandatory {
			ids = append(ids, id)
		}
	}
	return ids
}

// Schema is the metadata lookup the dispatcher consults. Implementations
// must be safe for concurrent reads.
type Schema interface {
	SchemaFor(t sai.ObjectType) (*ObjectSchema, bool)
}

// Table is an immutable Schema built from a metadata document.
type Table struct {
	objects map[sai.ObjectType]*ObjectSchema
}

// SchemaFor implements Schema.
func (t *Table) SchemaFor(ot sai.ObjectType) (*ObjectSchema, bool) {
	s, ok := t.objects[ot]
	return s, ok
}

// Types returns the object types described by the table, in numeric order.
func (t *Table) Types() []sai.ObjectType {
	types := make([]sai.ObjectType, 0, len(t.objects))
	for ot := range t.objects {
		types = append(types, ot)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type tableDoc struct {
	Objects []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	Type       string    `yaml:"type"`
	Attributes []attrDoc `yaml:"attributes"`
}

type attrDoc struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"`
	Access    string   `yaml:"access"`
	Mandatory bool     `yaml:"mandatory"`
	Enum      []string `yaml:"enum"`
}

//go:embed metadata.yaml
var defaultMetadata []byte

var defaultTable *Table

func init() {
	t, err := parse(defaultMetadata)
	if err != nil {
		panic(fmt.Sprintf("meta: embedded metadata: %v", err))
	}
	defaultTable = t
}

// Default returns the built-in metadata table.
func Default() *Table {
	return defaultTable
}

// Load reads a metadata document.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return parse(data)
}

// LoadFile reads a metadata document from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parse(data []byte) (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	v := &util.ValidationBuilder{}
	table := &Table{objects: make(map[sai.ObjectType]*ObjectSchema)}

	for _, od := range doc.Objects {
		ot, err := sai.ParseObjectType(od.Type)
		if err != nil {
			v.AddErrorf("object %q: %v", od.Type, err)
			continue
		}
		if _, dup := table.objects[ot]; dup {
			v.AddErrorf("object %s: described twice", ot)
			continue
		}

		schema := &ObjectSchema{Type: ot, attrs: make(map[sai.AttrID]*AttrMetadata)}
		for _, ad := range od.Attributes {
			md, err := parseAttr(ad)
			if err != nil {
				v.AddErrorf("object %s: %v", ot, err)
				continue
			}
			if _, dup := schema.attrs[md.ID]; dup {
				v.AddErrorf("object %s: attribute %s described twice", ot, md.ID)
				continue
			}
			schema.attrs[md.ID] = md
			schema.order = append(schema.order, md.ID)
		}
		table.objects[ot] = schema
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	return table, nil
}

func parseAttr(ad attrDoc) (*AttrMetadata, error) {
	if ad.ID == "" {
		return nil, fmt.Errorf("attribute without id")
	}
	kind, err := sai.ParseKind(ad.Kind)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", ad.ID, err)
	}

	access := Access(ad.Access)
	switch access {
	case AccessCreateOnly, AccessCreateAndSet, AccessReadOnly:
	default:
		return nil, fmt.Errorf("attribute %s: unknown access %q", ad.ID, ad.Access)
	}
	if ad.Mandatory && access == AccessReadOnly {
		return nil, fmt.Errorf("attribute %s: read-only attribute cannot be mandatory", ad.ID)
	}
	if kind == sai.KindEnum && len(ad.Enum) == 0 {
		return nil, fmt.Errorf("attribute %s: enum without values", ad.ID)
	}

	return &AttrMetadata{
		ID:        sai.AttrID(ad.ID),
		Kind:      kind,
		Access:    access,
		Mandatory: ad.Mandatory,
		Enum:      ad.Enum,
	}, nil
}
