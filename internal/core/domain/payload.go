package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is the tag of a button payload.
type Action string

const (
	ActionSelect       Action = "sel"
	ActionIncrement    Action = "inc"
	ActionDecrement    Action = "dec"
	ActionShowQuantity Action = "qty"
	ActionConfirmAdd   Action = "add"
	ActionRemove       Action = "rm"
	ActionRemoveAmount Action = "rma"
	ActionCheckout     Action = "buy"
	ActionCancel       Action = "cancel"
)

const (
	payloadSeparator = ":"
	// Telegram limits callback data to 64 bytes.
	maxPayloadLength = 64
)

// arity is the number of integer arguments each action carries.
var arity = map[Action]int{
	ActionSelect:       1,
	ActionIncrement:    1,
	ActionDecrement:    1,
	ActionShowQuantity: 1,
	ActionConfirmAdd:   1,
	ActionRemove:       1,
	ActionRemoveAmount: 2,
	ActionCheckout:     0,
	ActionCancel:       0,
}

// Payload is the structured form of an inline button's callback data,
// encoded as "<action>[:<item id>[:<amount>]]".
type Payload struct {
	Action Action
	ItemID int64
	Amount int
}

func SelectPayload(itemID int64) Payload    { return Payload{Action: ActionSelect, ItemID: itemID} }
func IncrementPayload(itemID int64) Payload { return Payload{Action: ActionIncrement, ItemID: itemID} }
func DecrementPayload(itemID int64) Payload { return Payload{Action: ActionDecrement, ItemID: itemID} }
func ShowQuantityPayload(itemID int64) Payload {
	return Payload{Action: ActionShowQuantity, ItemID: itemID}
}
func ConfirmAddPayload(itemID int64) Payload {
	return Payload{Action: ActionConfirmAdd, ItemID: itemID}
}
func RemovePayload(itemID int64) Payload { return Payload{Action: ActionRemove, ItemID: itemID} }
func CheckoutPayload() Payload           { return Payload{Action: ActionCheckout} }
func CancelPayload() Payload             { return Payload{Action: ActionCancel} }

func RemoveAmountPayload(itemID int64, amount int) Payload {
	return Payload{Action: ActionRemoveAmount, ItemID: itemID, Amount: amount}
}

func (p Payload) Encode() string {
	switch arity[p.Action] {
	case 1:
		return string(p.Action) + payloadSeparator + strconv.FormatInt(p.ItemID, 10)
	case 2:
		return string(p.Action) + payloadSeparator + strconv.FormatInt(p.ItemID, 10) +
			payloadSeparator + strconv.Itoa(p.Amount)
	default:
		return string(p.Action)
	}
}

// ParsePayload decodes callback data. Unknown actions, wrong argument counts
// and non-positive or non-numeric arguments are rejected with ErrInvalidPayload.
func ParsePayload(data string) (Payload, error) {
	if data == "" || len(data) > maxPayloadLength {
		return Payload{}, ErrInvalidPayload
	}

	parts := strings.Split(data, payloadSeparator)
	action := Action(parts[0])
	n, ok := arity[action]
	if !ok || len(parts)-1 != n {
		return Payload{}, fmt.Errorf("parse %q: %w", data, ErrInvalidPayload)
	}

	p := Payload{Action: action}
	if n >= 1 {
		id, err := ParsePositiveInt(parts[1])
		if err != nil {
			return Payload{}, fmt.Errorf("parse %q: %w", data, ErrInvalidPayload)
		}
		p.ItemID = id
	}
	if n == 2 {
		amount, err := ParsePositiveInt(parts[2])
		if err != nil || amount > int64(maxInt) {
			return Payload{}, fmt.Errorf("parse %q: %w", data, ErrInvalidPayload)
		}
		p.Amount = int(amount)
	}
	return p, nil
}

const maxInt = int(^uint(0) >> 1)

// ParsePositiveInt accepts only plain decimal digits (no sign, no spaces
// inside) denoting a value greater than zero.
func ParsePositiveInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return 0, fmt.Errorf("%q is not a positive integer", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%q is not a positive integer", s)
	}
	return n, nil
}
