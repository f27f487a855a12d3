package product

import "time"

// StockReservedEvent is emitted after an order reserves units of a product.
type StockReservedEvent struct {
	ProductID  string
	Name       string
	OrderID    string
	Quantity   int
	Remaining  int
	OccurredAt time.Time
}

func (StockReservedEvent) EventName() string { return "stock.reserved" }

func NewStockReservedEvent(p *Product, orderID string, quantity int) StockReservedEvent {
	return StockReservedEvent{
		ProductID:  p.ID,
		Name:       p.Name,
		OrderID:    orderID,
		Quantity:   quantity,
		Remaining:  p.Stock,
		OccurredAt: time.Now().UTC(),
	}
}
