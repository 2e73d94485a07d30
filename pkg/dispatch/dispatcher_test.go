package dispatch_test

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/newtron-network/sairedis/pkg/backend/memory"
	"github.com/newtron-network/sairedis/pkg/dispatch"
	"github.com/newtron-network/sairedis/pkg/sai"
)

const (
	attrType     sai.AttrID = "SAI_NEXT_HOP_ATTR_TYPE"
	attrIP       sai.AttrID = "SAI_NEXT_HOP_ATTR_IP"
	attrRIF      sai.AttrID = "SAI_NEXT_HOP_ATTR_ROUTER_INTERFACE_ID"
	attrNoDecTTL sai.AttrID = "SAI_NEXT_HOP_ATTR_DISABLE_DECREMENT_TTL"
)

func nextHop(ip string, rif sai.ObjectID) []sai.Attribute {
	return []sai.Attribute{
		{ID: attrType, Value: sai.Enum(0)},
		{ID: attrIP, Value: sai.IP(netip.MustParseAddr(ip))},
		{ID: attrRIF, Value: sai.OID(rif)},
	}
}

func TestNextHopScenario(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()

	id, err := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if id != 1 {
		t.Errorf("Create() id = %v, want oid:0x1", id)
	}

	attrs := sai.Request(attrIP)
	if err := d.Get(sai.ObjectTypeNextHop, id, b, attrs); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got := attrs[0].Value.AsIP().String(); got != "10.0.0.1" {
		t.Errorf("IP = %s, want 10.0.0.1", got)
	}

	if err := d.Set(sai.ObjectTypeNextHop, id, b, sai.Attribute{ID: attrNoDecTTL, Value: sai.Bool(true)}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	if err := d.Remove(sai.ObjectTypeNextHop, id, b); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	err = d.Get(sai.ObjectTypeNextHop, id, b, sai.Request(attrNoDecTTL))
	if !errors.Is(err, sai.ErrObjectNotFound) {
		t.Errorf("Get() after remove error = %v, want ErrObjectNotFound", err)
	}
	if sai.StatusOf(err) != sai.StatusItemNotFound {
		t.Errorf("StatusOf() = %v, want SAI_STATUS_ITEM_NOT_FOUND", sai.StatusOf(err))
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()

	tests := []struct {
		name  string
		t     sai.ObjectType
		attrs []sai.Attribute
	}{
		{"next hop", sai.ObjectTypeNextHop, nextHop("fc00::1", 9)},
		{"port", sai.ObjectTypePort, []sai.Attribute{
			{ID: "SAI_PORT_ATTR_HW_LANE_LIST", Value: sai.UintList(0, 1, 2, 3)},
			{ID: "SAI_PORT_ATTR_SPEED", Value: sai.Uint(100000)},
			{ID: "SAI_PORT_ATTR_ADMIN_STATE", Value: sai.Bool(true)},
		}},
		{"router interface", sai.ObjectTypeRouterInterface, []sai.Attribute{
			{ID: "SAI_ROUTER_INTERFACE_ATTR_VIRTUAL_ROUTER_ID", Value: sai.OID(1)},
			{ID: "SAI_ROUTER_INTERFACE_ATTR_TYPE", Value: sai.Enum(2)},
			{ID: "SAI_ROUTER_INTERFACE_ATTR_SRC_MAC_ADDRESS", Value: sai.Bytes([]byte{0x52, 0x54, 0, 1, 2, 3})},
		}},
		{"virtual router without attributes", sai.ObjectTypeVirtualRouter, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.Create(tt.t, b, tt.attrs)
			if err != nil {
				t.Fatalf("Create() error: %v", err)
			}

			got := sai.Request(sai.IDs(tt.attrs)...)
			if err := d.Get(tt.t, id, b, got); err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			for i := range tt.attrs {
				if got[i].ID != tt.attrs[i].ID {
					t.Errorf("attrs[%d].ID = %s, want %s", i, got[i].ID, tt.attrs[i].ID)
				}
				if !got[i].Value.Equal(tt.attrs[i].Value) {
					t.Errorf("%s = %v, want %v", got[i].ID, got[i].Value, tt.attrs[i].Value)
				}
			}
		})
	}
}

func TestGetPreservesCallerOrder(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))

	attrs := sai.Request(attrRIF, attrType, attrIP)
	if err := d.Get(sai.ObjectTypeNextHop, id, b, attrs); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(attrs) != 3 {
		t.Fatalf("len = %d, want 3", len(attrs))
	}
	if attrs[0].Value.AsOID() != 3 || attrs[1].Value.AsEnum() != 0 || attrs[2].Value.AsIP().String() != "10.0.0.1" {
		t.Errorf("Get() = %v", attrs)
	}
}

func TestGetLeavesAttrsOnBackendError(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))

	// DISABLE_DECREMENT_TTL was never set, so the backend has no value
	attrs := sai.Request(attrIP, attrNoDecTTL)
	err := d.Get(sai.ObjectTypeNextHop, id, b, attrs)
	if !errors.Is(err, sai.ErrBackendFailure) {
		t.Fatalf("Get() error = %v, want backend failure", err)
	}
	if sai.StatusOf(err) != sai.StatusItemNotFound {
		t.Errorf("StatusOf() = %v, want backend's SAI_STATUS_ITEM_NOT_FOUND", sai.StatusOf(err))
	}
	if attrs[0].Value.IsValid() {
		t.Error("attrs should be untouched when Get fails")
	}
}

type shortHandler struct {
	*memory.Backend
}

// Get drops the last requested attribute.
func (h shortHandler) Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error) {
	got, err := h.Backend.Get(t, id, ids)
	if err != nil || len(got) == 0 {
		return got, err
	}
	return got[:len(got)-1], nil
}

func TestGetIncompleteBackendResult(t *testing.T) {
	d := dispatch.New(nil)
	h := shortHandler{memory.New()}
	id, _ := d.Create(sai.ObjectTypeNextHop, h, nextHop("10.0.0.1", 3))

	attrs := sai.Request(attrIP, attrRIF)
	err := d.Get(sai.ObjectTypeNextHop, id, h, attrs)
	if !errors.Is(err, sai.ErrBackendFailure) {
		t.Fatalf("Get() error = %v, want backend failure", err)
	}
	if attrs[0].Value.IsValid() {
		t.Error("attrs should not be partially populated")
	}
}

func TestRemovedIDIsDead(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	if err := d.Remove(sai.ObjectTypeNextHop, id, b); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	removeCalls := b.Calls(dispatch.OpRemove)
	checks := map[string]error{
		"set":    d.Set(sai.ObjectTypeNextHop, id, b, sai.Attribute{ID: attrNoDecTTL, Value: sai.Bool(true)}),
		"get":    d.Get(sai.ObjectTypeNextHop, id, b, sai.Request(attrIP)),
		"remove": d.Remove(sai.ObjectTypeNextHop, id, b),
	}
	for op, err := range checks {
		if !errors.Is(err, sai.ErrObjectNotFound) {
			t.Errorf("%s after remove error = %v, want ErrObjectNotFound", op, err)
		}
	}
	if b.Calls(dispatch.OpRemove) != removeCalls || b.Calls(dispatch.OpSet) != 0 || b.Calls(dispatch.OpGet) != 0 {
		t.Error("operations on a dead id must not reach the backend")
	}

	next, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.2", 3))
	if next == id {
		t.Errorf("removed id %v was reissued", id)
	}
}

func TestCreateBackendFailureRollsBack(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	b.FailNext(dispatch.OpCreate, sai.StatusTableFull)

	id, err := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	if !errors.Is(err, sai.ErrBackendFailure) {
		t.Fatalf("Create() error = %v, want backend failure", err)
	}
	if sai.StatusOf(err) != sai.StatusTableFull {
		t.Errorf("StatusOf() = %v, want backend's SAI_STATUS_TABLE_FULL", sai.StatusOf(err))
	}
	if id != sai.NullObjectID {
		t.Errorf("Create() id = %v, want null id", id)
	}
	if live := d.Objects(sai.ObjectTypeNull); len(live) != 0 {
		t.Errorf("failed create leaked ids: %v", live)
	}

	// the burned id is not reissued
	next, err := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if next != 2 {
		t.Errorf("next id = %v, want oid:0x2", next)
	}
}

func TestRemoveBackendFailureKeepsID(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))

	b.FailNext(dispatch.OpRemove, sai.StatusObjectInUse)
	err := d.Remove(sai.ObjectTypeNextHop, id, b)
	if sai.StatusOf(err) != sai.StatusObjectInUse {
		t.Fatalf("Remove() status = %v, want SAI_STATUS_OBJECT_IN_USE", sai.StatusOf(err))
	}

	attrs := sai.Request(attrIP)
	if err := d.Get(sai.ObjectTypeNextHop, id, b, attrs); err != nil {
		t.Fatalf("object should still be live after failed remove: %v", err)
	}

	if err := d.Remove(sai.ObjectTypeNextHop, id, b); err != nil {
		t.Errorf("retry Remove() error: %v", err)
	}
}

func TestCreateDuplicateKeyAllocatesNothing(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()

	attrs := append(nextHop("10.0.0.1", 3), sai.Attribute{ID: attrIP, Value: sai.IP(netip.MustParseAddr("10.0.0.9"))})
	id, err := d.Create(sai.ObjectTypeNextHop, b, attrs)
	if !errors.Is(err, sai.ErrDuplicateAttributeKey) {
		t.Fatalf("Create() error = %v, want ErrDuplicateAttributeKey", err)
	}
	if id != sai.NullObjectID {
		t.Errorf("Create() id = %v, want null id", id)
	}
	if b.Calls(dispatch.OpCreate) != 0 {
		t.Error("validation failure must not reach the backend")
	}

	first, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	if first != 1 {
		t.Errorf("first successful id = %v, want oid:0x1", first)
	}
}

func TestRemoveUnknownID(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()

	err := d.Remove(sai.ObjectTypeNextHop, 999, b)
	if !errors.Is(err, sai.ErrObjectNotFound) {
		t.Errorf("Remove() error = %v, want ErrObjectNotFound", err)
	}
	if b.Calls(dispatch.OpRemove) != 0 {
		t.Errorf("backend remove calls = %d, want 0", b.Calls(dispatch.OpRemove))
	}
}

func TestTypeMismatch(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))

	err := d.Remove(sai.ObjectTypePort, id, b)
	if !errors.Is(err, sai.ErrObjectTypeMismatch) {
		t.Fatalf("Remove() error = %v, want ErrObjectTypeMismatch", err)
	}
	var oe *sai.ObjectError
	if !errors.As(err, &oe) || oe.Actual != sai.ObjectTypeNextHop {
		t.Errorf("ObjectError = %+v", oe)
	}
	if b.Calls(dispatch.OpRemove) != 0 {
		t.Error("type mismatch must not reach the backend")
	}
}

func TestSetValidation(t *testing.T) {
	d := dispatch.New(nil)
	b := memory.New()
	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))

	tests := []struct {
		name     string
		attr     sai.Attribute
		sentinel error
	}{
		{"unknown key", sai.Attribute{ID: "SAI_PORT_ATTR_MTU", Value: sai.Uint(1)}, sai.ErrInvalidAttributeKey},
		{"wrong kind", sai.Attribute{ID: attrNoDecTTL, Value: sai.Uint(1)}, sai.ErrAttributeTypeMismatch},
		{"create only", sai.Attribute{ID: attrIP, Value: sai.IP(netip.MustParseAddr("10.0.0.2"))}, sai.ErrAttributeNotSettable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Set(sai.ObjectTypeNextHop, id, b, tt.attr); !errors.Is(err, tt.sentinel) {
				t.Errorf("Set() error = %v, want %v", err, tt.sentinel)
			}
		})
	}
	if b.Calls(dispatch.OpSet) != 0 {
		t.Error("invalid set must not reach the backend")
	}
}

func TestNilHandler(t *testing.T) {
	d := dispatch.New(nil)
	_, err := d.Create(sai.ObjectTypeNextHop, nil, nextHop("10.0.0.1", 3))
	if sai.StatusOf(err) != sai.StatusNotImplemented {
		t.Errorf("Create(nil handler) status = %v, want SAI_STATUS_NOT_IMPLEMENTED", sai.StatusOf(err))
	}
}

// exclusiveHandler fails if two calls ever overlap.
type exclusiveHandler struct {
	*memory.Backend
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (h *exclusiveHandler) enter() func() {
	if h.inFlight.Add(1) > 1 {
		h.overlaps.Add(1)
	}
	return func() { h.inFlight.Add(-1) }
}

func (h *exclusiveHandler) Create(t sai.ObjectType, id sai.ObjectID, attrs []sai.Attribute) error {
	defer h.enter()()
	return h.Backend.Create(t, id, attrs)
}

func (h *exclusiveHandler) Remove(t sai.ObjectType, id sai.ObjectID) error {
	defer h.enter()()
	return h.Backend.Remove(t, id)
}

func (h *exclusiveHandler) Set(t sai.ObjectType, id sai.ObjectID, attr sai.Attribute) error {
	defer h.enter()()
	return h.Backend.Set(t, id, attr)
}

func (h *exclusiveHandler) Get(t sai.ObjectType, id sai.ObjectID, ids []sai.AttrID) ([]sai.Attribute, error) {
	defer h.enter()()
	return h.Backend.Get(t, id, ids)
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	d := dispatch.New(nil)
	h := &exclusiveHandler{Backend: memory.New()}

	const workers = 16
	const perWorker = 25

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[sai.ObjectID]bool)
		errs = make(chan error, workers)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ip := fmt.Sprintf("10.%d.%d.1", w, i)
				id, err := d.Create(sai.ObjectTypeNextHop, h, nextHop(ip, 3))
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				if seen[id] {
					errs <- fmt.Errorf("id %v issued twice", id)
				}
				seen[id] = true
				mu.Unlock()

				if err := d.Set(sai.ObjectTypeNextHop, id, h, sai.Attribute{ID: attrNoDecTTL, Value: sai.Bool(i%2 == 0)}); err != nil {
					errs <- err
					return
				}
				attrs := sai.Request(attrIP)
				if err := d.Get(sai.ObjectTypeNextHop, id, h, attrs); err != nil {
					errs <- err
					return
				}
				if attrs[0].Value.AsIP().String() != ip {
					errs <- fmt.Errorf("object %v read %v, want %s", id, attrs[0].Value, ip)
					return
				}
				if i%5 != 0 {
					if err := d.Remove(sai.ObjectTypeNextHop, id, h); err != nil {
						errs <- err
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if n := h.overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping backend calls", n)
	}
	if len(seen) != workers*perWorker {
		t.Errorf("issued %d ids, want %d", len(seen), workers*perWorker)
	}

	wantLive := workers * (perWorker / 5)
	if live := len(d.Objects(sai.ObjectTypeNextHop)); live != wantLive {
		t.Errorf("live objects = %d, want %d", live, wantLive)
	}
	if h.Backend.Len() != wantLive {
		t.Errorf("backend objects = %d, want %d", h.Backend.Len(), wantLive)
	}
}

func TestRestore(t *testing.T) {
	b := memory.New()
	b.Create(sai.ObjectTypeRouterInterface, 40, nil)
	b.Create(sai.ObjectTypeNextHop, 41, nil)

	d := dispatch.New(nil)
	n, err := d.Restore(b)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Restore() = %d, want 2", n)
	}

	if n, err := d.Restore(b); err != nil || n != 0 {
		t.Errorf("second Restore() = %d, %v, want 0 with everything live", n, err)
	}
	b.Create(sai.ObjectTypeNextHop, 42, nil)
	if n, err := d.Restore(b); err != nil || n != 1 {
		t.Errorf("Restore() after one new backend object = %d, %v, want 1", n, err)
	}
	if err := d.Remove(sai.ObjectTypeNextHop, 42, b); err != nil {
		t.Errorf("late restored object should be removable: %v", err)
	}

	if err := d.Remove(sai.ObjectTypeNextHop, 41, b); err != nil {
		t.Errorf("restored object should be removable: %v", err)
	}

	id, err := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 40))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if id <= 41 {
		t.Errorf("Create() after restore = %v, must not collide with restored ids", id)
	}
}

type recorder struct {
	records []dispatch.Record
}

func (r *recorder) Record(rec dispatch.Record) {
	r.records = append(r.records, rec)
}

func TestRecorder(t *testing.T) {
	rec := &recorder{}
	d := dispatch.New(nil, dispatch.WithRecorder(rec))
	b := memory.New()

	id, _ := d.Create(sai.ObjectTypeNextHop, b, nextHop("10.0.0.1", 3))
	d.Remove(sai.ObjectTypeNextHop, id, b)
	d.Remove(sai.ObjectTypeNextHop, id, b)

	if len(rec.records) != 3 {
		t.Fatalf("recorded %d operations, want 3", len(rec.records))
	}
	if rec.records[0].Op != dispatch.OpCreate || rec.records[0].ID != id || len(rec.records[0].Attributes) != 3 {
		t.Errorf("records[0] = %+v", rec.records[0])
	}
	if rec.records[1].Err != nil {
		t.Errorf("records[1].Err = %v", rec.records[1].Err)
	}
	if !errors.Is(rec.records[2].Err, sai.ErrObjectNotFound) {
		t.Errorf("records[2].Err = %v, want ErrObjectNotFound", rec.records[2].Err)
	}
}
