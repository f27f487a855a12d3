package order

import "time"

// PlacedEvent is emitted once an order has reserved its stock and been stored.
type PlacedEvent struct {
	OrderID    string
	OwnerID    string
	ClientID   string
	Total      string
	Items      int
	OccurredAt time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	return PlacedEvent{
		OrderID:    o.ID,
		OwnerID:    o.OwnerID,
		ClientID:   o.ClientID,
		Total:      o.Total.StringFixed(2),
		Items:      len(o.Items),
		OccurredAt: time.Now().UTC(),
	}
}

type UpdatedEvent struct {
	OrderID    string
	Status     Status
	OccurredAt time.Time
}

func (UpdatedEvent) EventName() string { return "order.updated" }

func NewUpdatedEvent(o *Order) UpdatedEvent {
	return UpdatedEvent{OrderID: o.ID, Status: o.Status, OccurredAt: time.Now().UTC()}
}

// CancelledEvent is emitted when an order is deleted. Reserved stock is not returned.
type CancelledEvent struct {
	OrderID    string
	OwnerID    string
	OccurredAt time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order) CancelledEvent {
	return CancelledEvent{OrderID: o.ID, OwnerID: o.OwnerID, OccurredAt: time.Now().UTC()}
}
