package cart

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/storage"
)

type memPersister struct {
	data    []byte
	saveErr error
	saves   int
}

func (m *memPersister) LoadCart(context.Context) ([]byte, error) { return m.data, nil }

func (m *memPersister) SaveCart(_ context.Context, data []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = data
	return nil
}

type mockOrders struct {
	lines []api.OrderLine
	err   error
}

func (m *mockOrders) CreateOrder(_ context.Context, lines []api.OrderLine) (*api.Order, error) {
	m.lines = lines
	if m.err != nil {
		return nil, m.err
	}
	return &api.Order{ID: 77, Estado: "recibido"}, nil
}

func amount(v float64) *api.Amount {
	a := api.Amount(v)
	return &a
}

var (
	mug  = api.Product{ID: 1, Nombre: "Mug", Marca: "Acme", PrecioUSD: amount(5), PrecioCLP: amount(4750)}
	tote = api.Product{ID: 2, Nombre: "Tote", Marca: "Acme", PrecioUSD: amount(12.5), PrecioFinalCLP: amount(12000)}
	pin  = api.Product{ID: 3, Nombre: "Pin", Marca: "Acme", PrecioUSD: amount(1)}
)

func TestAdd_SameProductTwice(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, &memPersister{})

	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, mug))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, c.Count())
}

func TestPersistsEveryChange(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	c := New(ctx, p)

	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, tote))
	require.NoError(t, c.UpdateQuantity(ctx, 2, 3))
	require.NoError(t, c.Remove(ctx, 1))
	assert.Equal(t, 4, p.saves)

	var stored []map[string]any
	require.NoError(t, json.Unmarshal(p.data, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "Tote", stored[0]["nombre"])
	assert.Equal(t, "12.50", stored[0]["precio_usd"])
	assert.Equal(t, float64(3), stored[0]["quantity"])

	require.NoError(t, c.Clear(ctx))
	assert.JSONEq(t, `[]`, string(p.data))
}

func TestRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{data: []byte(`[{"id":1,"nombre":"Mug","precio_usd":"5.00","quantity":2}]`)}

	c := New(ctx, p)

	require.Len(t, c.Items(), 1)
	assert.Equal(t, 2, c.Items()[0].Quantity)
	assert.Equal(t, api.Amount(10), c.TotalUSD())
}

func TestDiscardsUnreadableCart(t *testing.T) {
	c := New(context.Background(), &memPersister{data: []byte(`{not json`)})
	assert.Empty(t, c.Items())
}

func TestFailedSaveKeepsCart(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	c := New(ctx, p)
	require.NoError(t, c.Add(ctx, mug))

	p.saveErr = errors.New("disk full")
	assert.Error(t, c.Add(ctx, mug))
	assert.Error(t, c.Clear(ctx))

	require.Len(t, c.Items(), 1)
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, &memPersister{})
	require.NoError(t, c.Add(ctx, mug))

	assert.ErrorIs(t, c.UpdateQuantity(ctx, 1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.UpdateQuantity(ctx, 99, 2), ErrNotInCart)
	assert.ErrorIs(t, c.Remove(ctx, 99), ErrNotInCart)

	require.NoError(t, c.UpdateQuantity(ctx, 1, 4))
	assert.Equal(t, 4, c.Items()[0].Quantity)
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, &memPersister{})
	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, tote))
	require.NoError(t, c.Add(ctx, pin))

	assert.InDelta(t, 23.5, float64(c.TotalUSD()), 0.001)
	// pin has no CLP price and counts as zero
	assert.InDelta(t, 2*4750+12000, float64(c.TotalCLP()), 0.001)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, &memPersister{})
	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, mug))
	require.NoError(t, c.Add(ctx, tote))

	orders := &mockOrders{}
	order, err := c.Checkout(ctx, orders)

	require.NoError(t, err)
	assert.Equal(t, 77, order.ID)
	assert.Equal(t, []api.OrderLine{{Producto: 1, Cantidad: 2}, {Producto: 2, Cantidad: 1}}, orders.lines)
	assert.Empty(t, c.Items())
}

func TestCheckout_Empty(t *testing.T) {
	c := New(context.Background(), &memPersister{})
	_, err := c.Checkout(context.Background(), &mockOrders{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_FailedOrderKeepsCart(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, &memPersister{})
	require.NoError(t, c.Add(ctx, mug))

	_, err := c.Checkout(ctx, &mockOrders{err: errors.New("bad request")})

	assert.Error(t, err)
	assert.Len(t, c.Items(), 1)
}

func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "storefront.db")
	key := make([]byte, 32)

	store, err := storage.NewSQLiteStore(dbPath, key)
	require.NoError(t, err)
	c := New(ctx, store)
	require.NoError(t, c.Add(ctx, tote))
	require.NoError(t, c.Add(ctx, tote))
	require.NoError(t, store.Close())

	reopened, err := storage.NewSQLiteStore(dbPath, key)
	require.NoError(t, err)
	defer reopened.Close()

	restored := New(ctx, reopened)
	require.Len(t, restored.Items(), 1)
	assert.Equal(t, 2, restored.Items()[0].Quantity)
	assert.Equal(t, "Tote", restored.Items()[0].Nombre)
}
