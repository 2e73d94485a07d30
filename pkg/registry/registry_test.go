package registry

import (
	"errors"
	"testing"

	"github.com/newtron-network/sairedis/pkg/sai"
)

func TestAllocateMonotonic(t *testing.T) {
	r := New(nil)

	first, err := r.Allocate(sai.ObjectTypeNextHop)
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}
	if first != 1 {
		t.Errorf("first id = %v, want oid:0x1", first)
	}

	second, _ := r.Allocate(sai.ObjectTypePort)
	if second <= first {
		t.Errorf("second id %v should be greater than %v", second, first)
	}

	r.Release(first)
	third, _ := r.Allocate(sai.ObjectTypeNextHop)
	if third == first {
		t.Errorf("released id %v was reissued", first)
	}
	if third <= second {
		t.Errorf("third id %v should be greater than %v", third, second)
	}
}

func TestValidate(t *testing.T) {
	r := New(nil)
	id, _ := r.Allocate(sai.ObjectTypeNextHop)

	if err := r.Validate(id, sai.ObjectTypeNextHop); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if err := r.Validate(id, sai.ObjectTypePort); !errors.Is(err, sai.ErrObjectTypeMismatch) {
		t.Errorf("Validate() wrong type error = %v, want ErrObjectTypeMismatch", err)
	}
	if err := r.Validate(999, sai.ObjectTypeNextHop); !errors.Is(err, sai.ErrObjectNotFound) {
		t.Errorf("Validate() unknown id error = %v, want ErrObjectNotFound", err)
	}

	r.Release(id)
	if err := r.Validate(id, sai.ObjectTypeNextHop); !errors.Is(err, sai.ErrObjectNotFound) {
		t.Errorf("Validate() after release error = %v, want ErrObjectNotFound", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

type failingSequence struct{}

func (failingSequence) Next() (uint64, error) { return 0, errors.New("counter unavailable") }

func TestAllocateSequenceError(t *testing.T) {
	r := New(failingSequence{})
	if _, err := r.Allocate(sai.ObjectTypeNextHop); err == nil {
		t.Fatal("Allocate() should fail when the sequence fails")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after failed allocate, want 0", r.Len())
	}
}

func TestRestore(t *testing.T) {
	r := New(nil)

	if err := r.Restore(10, sai.ObjectTypeRouterInterface); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if err := r.Validate(10, sai.ObjectTypeRouterInterface); err != nil {
		t.Errorf("restored id not live: %v", err)
	}
	if err := r.Restore(10, sai.ObjectTypeNextHop); !errors.Is(err, sai.ErrObjectTypeMismatch) {
		t.Errorf("Restore() conflicting type error = %v", err)
	}
	if err := r.Restore(sai.NullObjectID, sai.ObjectTypeNextHop); err == nil {
		t.Error("Restore() should reject the null id")
	}

	id, _ := r.Allocate(sai.ObjectTypeNextHop)
	if id <= 10 {
		t.Errorf("Allocate() after restore = %v, want > oid:0xa", id)
	}
}

func TestObjects(t *testing.T) {
	r := New(nil)
	nh1, _ := r.Allocate(sai.ObjectTypeNextHop)
	r.Allocate(sai.ObjectTypePort)
	nh2, _ := r.Allocate(sai.ObjectTypeNextHop)

	got := r.Objects(sai.ObjectTypeNextHop)
	if len(got) != 2 || got[0].ID != nh1 || got[1].ID != nh2 {
		t.Errorf("Objects(NEXT_HOP) = %v", got)
	}
	if all := r.Objects(sai.ObjectTypeNull); len(all) != 3 {
		t.Errorf("Objects(NULL) returned %d, want 3", len(all))
	}
	if ot, ok := r.Type(nh2); !ok || ot != sai.ObjectTypeNextHop {
		t.Errorf("Type(%v) = %v, %v", nh2, ot, ok)
	}
}
