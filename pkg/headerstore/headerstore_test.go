package headerstore

import (
	"testing"

	"github.com/certen/nexus/pkg/types"
)

func TestStore_EmptyByDefault(t *testing.T) {
	s := New(4)
	if !s.IsEmpty() {
		t.Fatal("fresh store should be empty")
	}
	if _, ok := s.First(); ok {
		t.Fatal("First() should report false on an empty store")
	}
}

func TestStore_PushFront_NewestIsFirst(t *testing.T) {
	s := New(4)
	s.PushFront(types.NexusHeader{Number: 1})
	s.PushFront(types.NexusHeader{Number: 2})
	s.PushFront(types.NexusHeader{Number: 3})

	first, ok := s.First()
	if !ok || first.Number != 3 {
		t.Fatalf("First() = %+v, ok=%v; want Number=3", first, ok)
	}
	inner := s.Inner()
	if len(inner) != 3 || inner[0].Number != 3 || inner[1].Number != 2 || inner[2].Number != 1 {
		t.Fatalf("unexpected order: %+v", inner)
	}
}

func TestStore_EvictsTailAtCapacity(t *testing.T) {
	s := New(2)
	s.PushFront(types.NexusHeader{Number: 1})
	s.PushFront(types.NexusHeader{Number: 2})
	s.PushFront(types.NexusHeader{Number: 3})

	inner := s.Inner()
	if len(inner) != 2 {
		t.Fatalf("expected capacity-bounded length 2, got %d", len(inner))
	}
	if inner[0].Number != 3 || inner[1].Number != 2 {
		t.Fatalf("expected oldest header evicted, got %+v", inner)
	}
}

func TestStore_Hashes_MatchesHeaderHash(t *testing.T) {
	s := New(4)
	h := types.NexusHeader{Number: 7}
	s.PushFront(h)
	hashes := s.Hashes()
	if len(hashes) != 1 || hashes[0] != h.Hash() {
		t.Fatalf("Hashes() = %v, want [%s]", hashes, h.Hash())
	}
}

func TestStore_EncodeDecodeRoundTrip(t *testing.T) {
	s := New(4)
	s.PushFront(types.NexusHeader{Number: 1})
	s.PushFront(types.NexusHeader{Number: 2})

	decoded, err := Decode(s.EncodeBytes(), 4)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Inner()) != 2 || decoded.Inner()[0].Number != 2 || decoded.Inner()[1].Number != 1 {
		t.Fatalf("roundtrip mismatch: %+v", decoded.Inner())
	}
}

func TestDecode_RejectsCountExceedingCapacity(t *testing.T) {
	s := New(8)
	for i := uint32(0); i < 5; i++ {
		s.PushFront(types.NexusHeader{Number: i})
	}
	if _, err := Decode(s.EncodeBytes(), 2); err == nil {
		t.Fatal("expected error decoding an over-capacity encoding into a smaller store")
	}
}
