package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// ErrMissingPrice is returned when a product has neither a USD price nor a
// final CLP price.
var ErrMissingPrice = errors.New("a USD price or a final CLP price is required")

type Product struct {
	ID          int     `json:"id,omitempty"`
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	Marca       string  `json:"marca"`
	PrecioUSD   *Amount `json:"precio_usd"`
	PesoKg      *Amount `json:"peso_kg"`
	FechaCompra string  `json:"fecha_compra,omitempty"`
	Disponible  bool    `json:"disponible"`
	Imagen      string  `json:"imagen,omitempty"`
	// PrecioFinalCLP is a fixed CLP price set by an administrator.
	PrecioFinalCLP *Amount `json:"precio_final_clp"`
	// PrecioCLP is the computed CLP price, when the API provides it.
	PrecioCLP *Amount `json:"precio_clp,omitempty"`
}

// USD returns the USD price, zero when unset.
func (p Product) USD() Amount {
	if p.PrecioUSD == nil {
		return 0
	}
	return *p.PrecioUSD
}

// CLP returns the CLP price: the computed price if present, else the fixed
// final price, else zero.
func (p Product) CLP() Amount {
	switch {
	case p.PrecioCLP != nil:
		return *p.PrecioCLP
	case p.PrecioFinalCLP != nil:
		return *p.PrecioFinalCLP
	default:
		return 0
	}
}

// Validate checks the fields the API requires before sending.
func (p Product) Validate() error {
	if (p.PrecioUSD == nil || *p.PrecioUSD == 0) && (p.PrecioFinalCLP == nil || *p.PrecioFinalCLP == 0) {
		return ErrMissingPrice
	}
	return nil
}

type ProductFilter struct {
	Marca      string
	Disponible *bool
	Search     string
	// Ordering is a field name, prefixed with "-" for descending order.
	Ordering string
	Page     int
}

func (f ProductFilter) query() map[string]string {
	q := map[string]string{}
	if f.Marca != "" {
		q["marca"] = f.Marca
	}
	if f.Disponible != nil {
		q["disponible"] = strconv.FormatBool(*f.Disponible)
	}
	if f.Search != "" {
		q["search"] = f.Search
	}
	if f.Ordering != "" {
		q["ordering"] = f.Ordering
	}
	if f.Page > 0 {
		q["page"] = strconv.Itoa(f.Page)
	}
	return q
}

func productURL(id int) string {
	return fmt.Sprintf("productos/%d/", id)
}

func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (List[Product], error) {
	return getList[Product](ctx, c, "productos/", filter.query())
}

func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	p := &Product{}
	if err := c.getJSON(ctx, productURL(id), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	created := &Product{}
	if err := c.sendJSON(ctx, http.MethodPost, "productos/", p, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p Product) (*Product, error) {
	if p.ID == 0 {
		return nil, errors.New("product has no id")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	updated := &Product{}
	if err := c.sendJSON(ctx, http.MethodPut, productURL(p.ID), p, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, productURL(id), nil, nil)
}
