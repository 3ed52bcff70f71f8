package engine

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of orders resting at a single price.
// Insertion order is priority order. TotalQty caches the sum of the
// outstanding quantities of every order still in the queue.
type PriceLevel struct {
	Price decimal.Decimal

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

// Enqueue appends an order at the back of the queue.
func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Quantity
	p.OrderCount++
}

// PopHead removes and returns the front order.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}

	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}

	o.next = nil
	o.prev = nil

	p.TotalQty -= o.Quantity
	p.OrderCount--

	return o
}

// CompactFilled drops fully filled orders from the front of the queue.
// Matching always consumes from the front, so filled orders can only
// accumulate there.
func (p *PriceLevel) CompactFilled() {
	for p.head != nil && p.head.Filled() {
		p.PopHead()
	}
}

// Empty reports whether the queue holds no orders.
func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Head returns the front order without removing it.
func (p *PriceLevel) Head() *Order {
	return p.head
}
