package domain

import "time"

// OrderStatus enumerates valid lifecycle states for placed orders.
type OrderStatus string

const (
	// OrderStatusAwaitingPayment indicates the order waits for a manual
	// payment confirmation.
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	// OrderStatusConfirmed indicates payment was confirmed by an operator.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped indicates the order was handed to delivery.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted indicates the order was delivered and closed.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCanceled indicates the order was canceled.
	OrderStatusCanceled OrderStatus = "canceled"
)

// DeliveryMethod describes one configured delivery channel with its localized
// price. Provider integration stays outside the core.
type DeliveryMethod struct {
	ID    string
	Name  LocalizedText
	Price LocalizedMoney
}

// Clone returns an independent copy of the method.
func (d DeliveryMethod) Clone() DeliveryMethod {
	out := d
	out.Name = d.Name.Clone()
	out.Price = d.Price.Clone()
	return out
}

// Order is a placed cart with a delivery method, settled in one currency and
// confirmed manually.
type Order struct {
	ID           string
	UserID       string
	Entries      []CartEntry
	Currency     string
	Delivery     *DeliveryMethod
	Total        int64
	PriceBlocked bool
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConfirmedAt  *time.Time
	CanceledAt   *time.Time
}

// Clone returns an independent deep copy of the order.
func (o Order) Clone() Order {
	out := o
	if o.Entries != nil {
		out.Entries = make([]CartEntry, 0, len(o.Entries))
		for _, entry := range o.Entries {
			out.Entries = append(out.Entries, entry.Clone())
		}
	}
	if o.Delivery != nil {
		delivery := o.Delivery.Clone()
		out.Delivery = &delivery
	}
	if o.ConfirmedAt != nil {
		ts := *o.ConfirmedAt
		out.ConfirmedAt = &ts
	}
	if o.CanceledAt != nil {
		ts := *o.CanceledAt
		out.CanceledAt = &ts
	}
	return out
}

// OrderTransitions lists the legal status transitions.
var OrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusAwaitingPayment: {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed:       {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:         {OrderStatusCompleted},
	OrderStatusCompleted:       {},
	OrderStatusCanceled:        {},
}

// CanTransition reports whether the order may move from one status to
// another.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range OrderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
