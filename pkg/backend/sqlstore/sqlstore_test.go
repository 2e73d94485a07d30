package sqlstore

import (
	"errors"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/sai"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objects.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func nextHopAttrs() []sai.Attribute {
	return []sai.Attribute{
		{ID: "SAI_NEXT_HOP_ATTR_TYPE", Value: sai.Enum(0)},
		{ID: "SAI_NEXT_HOP_ATTR_IP", Value: sai.IP(netip.MustParseAddr("2001:db8::1"))},
		{ID: "SAI_NEXT_HOP_ATTR_LABELSTACK", Value: sai.UintList(100, 200)},
	}
}

func TestCreateGet(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.Create(sai.ObjectTypeNextHop, 1, nextHopAttrs()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := s.Create(sai.ObjectTypeNextHop, 1, nextHopAttrs()); !errors.Is(err, sai.StatusItemAlreadyExists) {
		t.Errorf("duplicate Create() error = %v, want SAI_STATUS_ITEM_ALREADY_EXISTS", err)
	}

	got, err := s.Get(sai.ObjectTypeNextHop, 1, []sai.AttrID{"SAI_NEXT_HOP_ATTR_LABELSTACK", "SAI_NEXT_HOP_ATTR_IP"})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Get() returned %d attributes, want 2", len(got))
	}
	for _, a := range got {
		switch a.ID {
		case "SAI_NEXT_HOP_ATTR_IP":
			if a.Value.AsIP().String() != "2001:db8::1" {
				t.Errorf("IP = %v", a.Value)
			}
		case "SAI_NEXT_HOP_ATTR_LABELSTACK":
			if !a.Value.Equal(sai.UintList(100, 200)) {
				t.Errorf("LABELSTACK = %v", a.Value)
			}
		default:
			t.Errorf("unexpected attribute %s", a.ID)
		}
	}

	if _, err := s.Get(sai.ObjectTypeNextHop, 1, []sai.AttrID{"SAI_NEXT_HOP_ATTR_COUNTER_ID"}); !errors.Is(err, sai.StatusItemNotFound) {
		t.Errorf("Get(unset) error = %v, want SAI_STATUS_ITEM_NOT_FOUND", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Create(sai.ObjectTypeNextHop, 1, nextHopAttrs()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	for _, v := range []bool{true, false} {
		attr := sai.Attribute{ID: "SAI_NEXT_HOP_ATTR_DISABLE_DECREMENT_TTL", Value: sai.Bool(v)}
		if err := s.Set(sai.ObjectTypeNextHop, 1, attr); err != nil {
			t.Fatalf("Set(%v) error: %v", v, err)
		}
		got, err := s.Get(sai.ObjectTypeNextHop, 1, []sai.AttrID{attr.ID})
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got[0].Value.AsBool() != v {
			t.Errorf("DISABLE_DECREMENT_TTL = %v, want %v", got[0].Value, v)
		}
	}

	var n int64
	s.db.Model(&AttributeRow{}).Where("oid = ? AND name = ?", 1, "SAI_NEXT_HOP_ATTR_DISABLE_DECREMENT_TTL").Count(&n)
	if n != 1 {
		t.Errorf("attribute rows = %d, want 1", n)
	}
}

func TestRemove(t *testing.T) {
	s, _ := openTestStore(t)
	s.Create(sai.ObjectTypeNextHop, 1, nextHopAttrs())

	if err := s.Remove(sai.ObjectTypePort, 1); !errors.Is(err, sai.StatusInvalidObjectType) {
		t.Errorf("Remove(wrong type) error = %v, want SAI_STATUS_INVALID_OBJECT_TYPE", err)
	}
	if err := s.Remove(sai.ObjectTypeNextHop, 1); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove(sai.ObjectTypeNextHop, 1); !errors.Is(err, sai.StatusItemNotFound) {
		t.Errorf("second Remove() error = %v, want SAI_STATUS_ITEM_NOT_FOUND", err)
	}

	var n int64
	s.db.Model(&AttributeRow{}).Count(&n)
	if n != 0 {
		t.Errorf("attribute rows after remove = %d, want 0", n)
	}
}

func TestRestoreAfterReopen(t *testing.T) {
	s, path := openTestStore(t)

	d := dispatch.New(nil)
	rif, err := d.Create(sai.ObjectTypeRouterInterface, s, []sai.Attribute{
		{ID: "SAI_ROUTER_INTERFACE_ATTR_VIRTUAL_ROUTER_ID", Value: sai.OID(0x3000000000001)},
		{ID: "SAI_ROUTER_INTERFACE_ATTR_TYPE", Value: sai.Enum(2)},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := d.Create(sai.ObjectTypeVirtualRouter, s, nil); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	s.Close()

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer reopened.Close()

	d2 := dispatch.New(nil)
	n, err := d2.Restore(reopened)
	if err != nil || n != 2 {
		t.Fatalf("Restore() = %d, %v; want 2", n, err)
	}

	attrs := sai.Request("SAI_ROUTER_INTERFACE_ATTR_TYPE")
	if err := d2.Get(sai.ObjectTypeRouterInterface, rif, reopened, attrs); err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if attrs[0].Value.AsEnum() != 2 {
		t.Errorf("TYPE = %v, want 2", attrs[0].Value)
	}

	id, err := d2.Create(sai.ObjectTypeVirtualRouter, reopened, nil)
	if err != nil {
		t.Fatalf("Create() after reopen error: %v", err)
	}
	if id != 3 {
		t.Errorf("Create() after reopen id = %v, want oid:0x3", id)
	}
}

func TestRemovedIDNotReissuedAfterReopen(t *testing.T) {
	s, path := openTestStore(t)

	d := dispatch.New(nil, dispatch.WithSequence(s.Sequence()))
	if _, err := d.Restore(s); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	first, err := d.Create(sai.ObjectTypeVirtualRouter, s, nil)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := d.Remove(sai.ObjectTypeVirtualRouter, first, s); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	s.Close()

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer reopened.Close()

	d2 := dispatch.New(nil, dispatch.WithSequence(reopened.Sequence()))
	if n, err := d2.Restore(reopened); err != nil || n != 0 {
		t.Fatalf("Restore() = %d, %v; want 0", n, err)
	}
	second, err := d2.Create(sai.ObjectTypeVirtualRouter, reopened, nil)
	if err != nil {
		t.Fatalf("Create() after reopen error: %v", err)
	}
	if second == first {
		t.Errorf("removed id %v reissued after reopen", first)
	}
	if second != first+1 {
		t.Errorf("Create() after reopen id = %v, want %v", second, first+1)
	}
}

func TestSequence(t *testing.T) {
	s, _ := openTestStore(t)
	seq := s.Sequence()
	for want := uint64(1); want <= 3; want++ {
		got, err := seq.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}

	var row CounterRow
	if err := s.db.First(&row, "name = ?", CounterName).Error; err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	if row.Value != 3 {
		t.Errorf("%s = %d, want 3", CounterName, row.Value)
	}
}

func TestOpenMigrationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	// a view named like the objects table makes the migration fail
	if err := db.Exec("CREATE VIEW objects AS SELECT 1 AS oid").Error; err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	_, err = Open(path, nil)
	if err == nil {
		t.Fatal("Open() should fail when migration fails")
	}
	if !strings.Contains(err.Error(), "migrating object tables") {
		t.Errorf("Open() error = %v, want migration error", err)
	}
}
