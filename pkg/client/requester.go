package client

import (
	"context"

	"github.com/cuemby/tableside/pkg/types"
)

// OrderItemsRequester settles AddDish by posting to the order-items endpoint.
// The API has no confirm or cancel endpoint, so those settle immediately.
type OrderItemsRequester struct {
	client *Client
}

// NewOrderItemsRequester creates a requester backed by c
func NewOrderItemsRequester(c *Client) *OrderItemsRequester {
	return &OrderItemsRequester{client: c}
}

func (r *OrderItemsRequester) AddDish(ctx context.Context, reservationCode string, entries []types.PendingEntry) error {
	items := make([]OrderItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, OrderItem{ID: e.DishID, Quantity: e.Quantity, Price: e.Price})
	}
	_, err := r.client.AddOrderItems(ctx, reservationCode, items)
	return err
}

func (r *OrderItemsRequester) ConfirmOrder(ctx context.Context, reservationCode string, orderID types.LineID) error {
	return ctx.Err()
}

func (r *OrderItemsRequester) CancelOrder(ctx context.Context, reservationCode string, orderID types.LineID) error {
	return ctx.Err()
}
