package domain

import (
	"errors"
	"testing"
)

func TestSelectingQuantity_DecrementClampsAtOne(t *testing.T) {
	s := NewSelectingQuantity(7)
	if s.Quantity != 1 {
		t.Fatalf("initial quantity = %d, want 1", s.Quantity)
	}

	s = s.Increment().Increment()
	if s.Quantity != 3 {
		t.Fatalf("quantity after two increments = %d, want 3", s.Quantity)
	}

	for i := 0; i < 5; i++ {
		s = s.Decrement()
	}
	if s.Quantity != 1 {
		t.Errorf("quantity after decrements = %d, want 1", s.Quantity)
	}
	if s.ItemID != 7 {
		t.Errorf("item changed to %d", s.ItemID)
	}
}

func TestAwaitingRemovalAmount_Accepts(t *testing.T) {
	s := AwaitingRemovalAmount{ItemID: 1, MaxQuantity: 3}
	for n, want := range map[int]bool{-1: false, 0: false, 1: true, 3: true, 4: false} {
		if got := s.Accepts(n); got != want {
			t.Errorf("Accepts(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	states := []SessionState{
		Idle{},
		SelectingQuantity{ItemID: 4, Quantity: 2},
		AwaitingRemovalAmount{ItemID: 9, MaxQuantity: 5},
		AwaitingAdminItemID{},
	}
	for _, want := range states {
		t.Run(string(want.Kind()), func(t *testing.T) {
			data, err := MarshalState(want)
			if err != nil {
				t.Fatalf("MarshalState: %v", err)
			}
			got, err := UnmarshalState(data)
			if err != nil {
				t.Fatalf("UnmarshalState(%s): %v", data, err)
			}
			if got != want {
				t.Errorf("round trip = %#v, want %#v", got, want)
			}
		})
	}
}

func TestUnmarshalState_EmptyIsIdle(t *testing.T) {
	got, err := UnmarshalState(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(Idle); !ok {
		t.Errorf("got %T, want Idle", got)
	}
}

func TestUnmarshalState_Rejects(t *testing.T) {
	for _, in := range []string{
		`{"kind":"flying"}`,
		`{"kind":"selecting_quantity","item_id":1,"quantity":0}`,
		`{"kind":"awaiting_removal_amount","item_id":0,"max_quantity":2}`,
	} {
		if _, err := UnmarshalState([]byte(in)); !errors.Is(err, ErrUnknownState) {
			t.Errorf("UnmarshalState(%s) error = %v, want ErrUnknownState", in, err)
		}
	}
	if _, err := UnmarshalState([]byte("quantity=3")); err == nil {
		t.Error("expected error for non-JSON state")
	}
}

func TestMarshalState_NilIsIdle(t *testing.T) {
	data, err := MarshalState(nil)
	if err != nil {
		t.Fatalf("MarshalState(nil): %v", err)
	}
	if string(data) != `{"kind":"idle"}` {
		t.Errorf("MarshalState(nil) = %s", data)
	}
}
