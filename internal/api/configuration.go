package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Configuration holds the pricing parameters used by the API to compute
// order totals.
type Configuration struct {
	ID                 int        `json:"id,omitempty"`
	PorcentajeComision Amount     `json:"porcentaje_comision"`
	TasaSeguro         Amount     `json:"tasa_seguro"`
	CostoPorKg         Amount     `json:"costo_por_kg"`
	TasaArancel        Amount     `json:"tasa_arancel"`
	TasaIVA            Amount     `json:"tasa_iva"`
	DolarAduanero      *Amount    `json:"dolar_aduanero,omitempty"`
	FechaDolarAduanero *time.Time `json:"fecha_actualizacion_dolar_aduanero,omitempty"`
}

// DefaultConfiguration mirrors the API's defaults for a new configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		PorcentajeComision: 15,
		TasaSeguro:         1,
		CostoPorKg:         5,
		TasaArancel:        6,
		TasaIVA:            19,
	}
}

func configurationURL(id int) string {
	return fmt.Sprintf("configuracion/%d/", id)
}

func (c *Client) ListConfiguration(ctx context.Context) (List[Configuration], error) {
	return getList[Configuration](ctx, c, "configuracion/", nil)
}

func (c *Client) GetConfiguration(ctx context.Context, id int) (*Configuration, error) {
	cfg := &Configuration{}
	if err := c.getJSON(ctx, configurationURL(id), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) CreateConfiguration(ctx context.Context, cfg Configuration) (*Configuration, error) {
	created := &Configuration{}
	if err := c.sendJSON(ctx, http.MethodPost, "configuracion/", cfg, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateConfiguration(ctx context.Context, cfg Configuration) (*Configuration, error) {
	updated := &Configuration{}
	if err := c.sendJSON(ctx, http.MethodPut, configurationURL(cfg.ID), cfg, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// SaveConfiguration updates cfg if it has an id and creates it otherwise.
func (c *Client) SaveConfiguration(ctx context.Context, cfg Configuration) (*Configuration, error) {
	if cfg.ID != 0 {
		return c.UpdateConfiguration(ctx, cfg)
	}
	return c.CreateConfiguration(ctx, cfg)
}

// CurrentConfiguration returns the first configuration, or nil if none exists.
func (c *Client) CurrentConfiguration(ctx context.Context) (*Configuration, error) {
	list, err := c.ListConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	return &list.Items[0], nil
}
