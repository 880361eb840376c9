package domain

type Button struct {
	Text    string
	Payload Payload
}

// Reply is one outbound message. When Edit is set the transport replaces the
// message the triggering button belonged to instead of sending a new one.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Edit     bool
}

type LabeledPrice struct {
	Label  string
	Amount int64
}

// InvoiceRequirements lists the buyer details the payment provider must collect.
type InvoiceRequirements struct {
	Name            bool
	PhoneNumber     bool
	Email           bool
	ShippingAddress bool
}

type Invoice struct {
	Title        string
	Description  string
	Payload      string
	Currency     string
	Prices       []LabeledPrice
	Requirements InvoiceRequirements
	Flexible     bool
}

func (inv Invoice) Total() int64 {
	var total int64
	for _, p := range inv.Prices {
		total += p.Amount
	}
	return total
}

type Response struct {
	Replies []Reply
	Invoice *Invoice
}

func (r *Response) Add(reply Reply) {
	r.Replies = append(r.Replies, reply)
}
