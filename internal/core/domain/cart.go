package domain

type CartLine struct {
	UserID   int64
	ItemID   int64
	Quantity int
}

// CartEntry is a cart line joined with the catalog item it references.
type CartEntry struct {
	Item     Item
	Quantity int
}

func (e CartEntry) Subtotal() int64 {
	return e.Item.Price * int64(e.Quantity)
}

// CartTotal sums price x quantity over entries in minor units.
func CartTotal(entries []CartEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Subtotal()
	}
	return total
}
