package domain

import (
	"encoding/json"
	"fmt"
)

type StateKind string

const (
	StateIdle                  StateKind = "idle"
	StateSelectingQuantity     StateKind = "selecting_quantity"
	StateAwaitingRemovalAmount StateKind = "awaiting_removal_amount"
	StateAwaitingAdminItemID   StateKind = "awaiting_admin_item_id"
)

// SessionState is the single current conversational state of a user. The set
// of implementations is closed: Idle, SelectingQuantity, AwaitingRemovalAmount
// and AwaitingAdminItemID.
type SessionState interface {
	Kind() StateKind
	sessionState()
}

type Idle struct{}

// SelectingQuantity: the user is viewing one item and adjusting the quantity
// to add. Quantity is always at least 1.
type SelectingQuantity struct {
	ItemID   int64
	Quantity int
}

// AwaitingRemovalAmount: the user must supply how many units of a cart line
// to remove, between 1 and MaxQuantity.
type AwaitingRemovalAmount struct {
	ItemID      int64
	MaxQuantity int
}

type AwaitingAdminItemID struct{}

func (Idle) Kind() StateKind                  { return StateIdle }
func (SelectingQuantity) Kind() StateKind     { return StateSelectingQuantity }
func (AwaitingRemovalAmount) Kind() StateKind { return StateAwaitingRemovalAmount }
func (AwaitingAdminItemID) Kind() StateKind   { return StateAwaitingAdminItemID }

func (Idle) sessionState()                  {}
func (SelectingQuantity) sessionState()     {}
func (AwaitingRemovalAmount) sessionState() {}
func (AwaitingAdminItemID) sessionState()   {}

func NewSelectingQuantity(itemID int64) SelectingQuantity {
	return SelectingQuantity{ItemID: itemID, Quantity: 1}
}

func (s SelectingQuantity) Increment() SelectingQuantity {
	s.Quantity++
	return s
}

// Decrement never goes below 1.
func (s SelectingQuantity) Decrement() SelectingQuantity {
	s.Quantity = max(1, s.Quantity-1)
	return s
}

func (s AwaitingRemovalAmount) Accepts(n int) bool {
	return n > 0 && n <= s.MaxQuantity
}

type stateEnvelope struct {
	Kind        StateKind `json:"kind"`
	ItemID      int64     `json:"item_id,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	MaxQuantity int       `json:"max_quantity,omitempty"`
}

// MarshalState encodes a state as a JSON envelope tagged with its kind.
// A nil state is stored as Idle.
func MarshalState(s SessionState) ([]byte, error) {
	env := stateEnvelope{Kind: StateIdle}
	switch st := s.(type) {
	case nil, Idle:
	case SelectingQuantity:
		env = stateEnvelope{Kind: StateSelectingQuantity, ItemID: st.ItemID, Quantity: st.Quantity}
	case AwaitingRemovalAmount:
		env = stateEnvelope{Kind: StateAwaitingRemovalAmount, ItemID: st.ItemID, MaxQuantity: st.MaxQuantity}
	case AwaitingAdminItemID:
		env = stateEnvelope{Kind: StateAwaitingAdminItemID}
	default:
		return nil, fmt.Errorf("marshal %T: %w", s, ErrUnknownState)
	}
	return json.Marshal(env)
}

func UnmarshalState(data []byte) (SessionState, error) {
	if len(data) == 0 {
		return Idle{}, nil
	}

	var env stateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}

	switch env.Kind {
	case StateIdle:
		return Idle{}, nil
	case StateSelectingQuantity:
		if env.ItemID <= 0 || env.Quantity < 1 {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, ErrUnknownState)
		}
		return SelectingQuantity{ItemID: env.ItemID, Quantity: env.Quantity}, nil
	case StateAwaitingRemovalAmount:
		if env.ItemID <= 0 || env.MaxQuantity < 1 {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, ErrUnknownState)
		}
		return AwaitingRemovalAmount{ItemID: env.ItemID, MaxQuantity: env.MaxQuantity}, nil
	case StateAwaitingAdminItemID:
		return AwaitingAdminItemID{}, nil
	default:
		return nil, fmt.Errorf("decode %q: %w", env.Kind, ErrUnknownState)
	}
}
