package api

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var ErrNoOrderLines = errors.New("order has no lines")

// OrderLine is one product and quantity of an order being placed.
type OrderLine struct {
	Producto int `json:"producto"`
	Cantidad int `json:"cantidad"`
}

type OrderDetail struct {
	ID          int    `json:"id"`
	Producto    int    `json:"producto"`
	Cantidad    int    `json:"cantidad"`
	SubtotalUSD Amount `json:"subtotal_usd"`
	SubtotalCLP Amount `json:"subtotal_clp"`
	PesoKg      Amount `json:"peso_kg"`
}

type Customer struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
}

type Order struct {
	ID            int           `json:"id"`
	Cliente       *Customer     `json:"cliente,omitempty"`
	FechaPedido   time.Time     `json:"fecha_pedido"`
	Estado        string        `json:"estado"`
	TotalUSD      Amount        `json:"total_usd"`
	TotalCLP      Amount        `json:"total_clp"`
	PesoTotalKg   Amount        `json:"peso_total_kg"`
	ValorDolar    Amount        `json:"valor_dolar"`
	TotalFinalCLP Amount        `json:"total_final_clp"`
	Detalles      []OrderDetail `json:"detalles"`
}

// StatusLabel returns the display name of the order status.
func (o Order) StatusLabel() string {
	switch o.Estado {
	case "recibido":
		return "Received"
	case "en_proceso":
		return "In progress"
	case "enviado":
		return "Shipped"
	case "entregado":
		return "Delivered"
	default:
		return o.Estado
	}
}

type createOrderRequest struct {
	Detalles []OrderLine `json:"detalles"`
}

// ListOrders returns the orders of the logged in user.
func (c *Client) ListOrders(ctx context.Context) (List[Order], error) {
	return getList[Order](ctx, c, "pedidos/", nil)
}

// CreateOrder places an order for lines.
func (c *Client) CreateOrder(ctx context.Context, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoOrderLines
	}
	order := &Order{}
	if err := c.sendJSON(ctx, http.MethodPost, "pedidos/", createOrderRequest{Detalles: lines}, order); err != nil {
		return nil, err
	}
	return order, nil
}
