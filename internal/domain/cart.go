package domain

import "time"

// CartEntry is a configured product waiting in a user's cart. The entry keeps
// the full configuration snapshot so the order can reproduce the user's
// selections after the catalog moves on.
type CartEntry struct {
	ID            string
	ProductID     string
	ProductName   LocalizedText
	Configuration ProductConfiguration
	Price         LocalizedMoney
	PriceBlocked  bool
	AddedAt       time.Time
}

// Clone returns an independent deep copy of the entry.
func (e CartEntry) Clone() CartEntry {
	out := e
	out.ProductName = e.ProductName.Clone()
	out.Configuration = e.Configuration.Clone()
	out.Price = e.Price.Clone()
	return out
}

// Cart aggregates the configured entries collected by one user.
type Cart struct {
	UserID    string
	Entries   []CartEntry
	UpdatedAt time.Time
}

// Clone returns an independent deep copy of the cart.
func (c Cart) Clone() Cart {
	out := Cart{UserID: c.UserID, UpdatedAt: c.UpdatedAt}
	if c.Entries != nil {
		out.Entries = make([]CartEntry, 0, len(c.Entries))
		for _, entry := range c.Entries {
			out.Entries = append(out.Entries, entry.Clone())
		}
	}
	return out
}

// Total sums the entry prices key-wise over every currency present.
func (c Cart) Total() LocalizedMoney {
	total := LocalizedMoney{}
	for _, entry := range c.Entries {
		total = total.Add(entry.Price)
	}
	return total
}

// PriceBlocked reports whether any entry's configuration blocks price
// determination, making the cart total a quote rather than a final amount.
func (c Cart) PriceBlocked() bool {
	for _, entry := range c.Entries {
		if entry.PriceBlocked {
			return true
		}
	}
	return false
}
