// Package cart is the shopping cart. It lives on the client and is persisted
// as a single JSON entry after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/raine/storefront/internal/api"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Persister stores the serialized cart.
type Persister interface {
	LoadCart(ctx context.Context) ([]byte, error)
	SaveCart(ctx context.Context, data []byte) error
}

// OrderCreator places an order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, lines []api.OrderLine) (*api.Order, error)
}

// Item is a product in the cart. It serializes as the product's fields plus
// quantity.
type Item struct {
	api.Product
	Quantity int `json:"quantity"`
}

type Cart struct {
	store Persister

	mu    sync.RWMutex
	items []Item
}

// New creates a cart restored from store. Unreadable contents are discarded
// and the cart starts empty.
func New(ctx context.Context, store Persister) *Cart {
	c := &Cart{store: store}

	data, err := store.LoadCart(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not load cart, starting empty")
		return c
	}
	if len(data) == 0 {
		return c
	}
	if err := json.Unmarshal(data, &c.items); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable cart")
		c.items = nil
	}
	return c
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Count returns the total quantity of all lines.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Add puts one unit of p in the cart. Adding a product already in the cart
// increments its quantity.
func (c *Cart) Add(ctx context.Context, p api.Product) error {
	return c.update(ctx, func(items []Item) ([]Item, error) {
		if i := index(items, p.ID); i >= 0 {
			items[i].Quantity++
			return items, nil
		}
		return append(items, Item{Product: p, Quantity: 1}), nil
	})
}

func (c *Cart) Remove(ctx context.Context, productID int) error {
	return c.update(ctx, func(items []Item) ([]Item, error) {
		i := index(items, productID)
		if i < 0 {
			return nil, ErrNotInCart
		}
		return slices.Delete(items, i, i+1), nil
	})
}

func (c *Cart) UpdateQuantity(ctx context.Context, productID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return c.update(ctx, func(items []Item) ([]Item, error) {
		i := index(items, productID)
		if i < 0 {
			return nil, ErrNotInCart
		}
		items[i].Quantity = quantity
		return items, nil
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.update(ctx, func([]Item) ([]Item, error) {
		return nil, nil
	})
}

func (c *Cart) TotalUSD() api.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total api.Amount
	for _, it := range c.items {
		total += it.USD() * api.Amount(it.Quantity)
	}
	return total
}

// TotalCLP sums the CLP prices. Products without a CLP price count as zero.
func (c *Cart) TotalCLP() api.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total api.Amount
	for _, it := range c.items {
		total += it.CLP() * api.Amount(it.Quantity)
	}
	return total
}

func (c *Cart) OrderLines() []api.OrderLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lines := make([]api.OrderLine, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, api.OrderLine{Producto: it.ID, Cantidad: it.Quantity})
	}
	return lines
}

// Checkout places an order for the cart contents and empties the cart.
func (c *Cart) Checkout(ctx context.Context, orders OrderCreator) (*api.Order, error) {
	lines := c.OrderLines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order, err := orders.CreateOrder(ctx, lines)
	if err != nil {
		return nil, err
	}
	log.Info().Int("orderId", order.ID).Int("lines", len(lines)).Msg("order placed")

	if err := c.Clear(ctx); err != nil {
		return order, fmt.Errorf("order placed but cart could not be cleared: %w", err)
	}
	return order, nil
}

// update applies fn to a copy of the items, persists the result and only
// then replaces the in-memory cart.
func (c *Cart) update(ctx context.Context, fn func([]Item) ([]Item, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(slices.Clone(c.items))
	if err != nil {
		return err
	}
	if next == nil {
		next = []Item{}
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := c.store.SaveCart(ctx, data); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	c.items = next
	return nil
}

func index(items []Item, productID int) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == productID })
}
