package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type Orders struct{ s *Store }

var _ order.Repository = (*Orders)(nil)

func (r *Orders) InsertAggregate(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()
	d := &r.s.data

	if _, ok := d.users[o.UserID]; !ok {
		return user.ErrNotFound
	}
	for _, item := range o.Items {
		if _, ok := d.products[item.ProductID]; !ok {
			return catalog.ErrProductNotFound
		}
	}

	header := *o
	header.Items, header.Payment, header.ShippingAddress = nil, nil, nil
	d.orders[o.ID] = header

	for _, item := range o.Items {
		item.OrderID = o.ID
		d.orderItems[item.ID] = item
	}
	if o.Payment != nil {
		d.payments[o.ID] = *o.Payment
	}
	if o.ShippingAddress != nil {
		d.addresses[o.ID] = *o.ShippingAddress
	}
	return nil
}

func (r *Orders) GetStatusForUpdate(ctx context.Context, id uuid.UUID) (order.Status, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return "", order.ErrOrderNotFound
	}
	return o.Status, nil
}

func (r *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status, at time.Time) error {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	r.s.data.orders[id] = o
	return nil
}

func (r *Orders) DeleteAggregate(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	d := &r.s.data
	for itemID, item := range d.orderItems {
		if item.OrderID == id {
			delete(d.orderItems, itemID)
		}
	}
	delete(d.payments, id)
	delete(d.addresses, id)

	if _, ok := d.orders[id]; !ok {
		return order.ErrOrderNotFound
	}
	delete(d.orders, id)
	return nil
}

// Counts reports how many rows each order table holds.
func (r *Orders) Counts() (orders, items, payments, addresses int) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := r.s.data
	return len(d.orders), len(d.orderItems), len(d.payments), len(d.addresses)
}

type OrderQueries struct{ s *Store }

var _ order.QueryRepository = (*OrderQueries)(nil)

func (r *OrderQueries) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	r.hydrate(&o)
	return &o, nil
}

func (r *OrderQueries) ListByUserID(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	defer r.s.lock(ctx)()
	return r.list(func(o order.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderQueries) ListAll(ctx context.Context) ([]order.Order, error) {
	defer r.s.lock(ctx)()
	return r.list(func(order.Order) bool { return true }), nil
}

func (r *OrderQueries) list(match func(order.Order) bool) []order.Order {
	orders := make([]order.Order, 0)
	for _, o := range r.s.data.orders {
		if match(o) {
			r.hydrate(&o)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
	return orders
}

func (r *OrderQueries) hydrate(o *order.Order) {
	d := r.s.data
	o.Items = make([]order.OrderItem, 0)
	for _, item := range d.orderItems {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID.String() < o.Items[j].ID.String() })

	if p, ok := d.payments[o.ID]; ok {
		o.Payment = &p
	}
	if a, ok := d.addresses[o.ID]; ok {
		o.ShippingAddress = &a
	}
}
