package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/session"
)

var (
	productFields = []string{"nombre", "descripcion", "marca", "precio_usd", "peso_kg", "fecha_compra", "disponible", "precio_final_clp"}
	configFields  = []string{"porcentaje_comision", "tasa_seguro", "costo_por_kg", "tasa_arancel", "tasa_iva", "dolar_aduanero"}
)

func applyProductFields(p *api.Product, fields map[string]string) error {
	for key, value := range fields {
		switch key {
		case "nombre":
			p.Nombre = value
		case "descripcion":
			p.Descripcion = value
		case "marca":
			p.Marca = value
		case "fecha_compra":
			p.FechaCompra = value
		case "disponible":
			b, err := parseBoolField(key, value)
			if err != nil {
				return err
			}
			p.Disponible = b
		case "precio_usd", "peso_kg", "precio_final_clp":
			var amount *api.Amount
			if value != "" {
				a, err := parseAmountField(key, value)
				if err != nil {
					return err
				}
				amount = &a
			}
			switch key {
			case "precio_usd":
				p.PrecioUSD = amount
			case "peso_kg":
				p.PesoKg = amount
			default:
				p.PrecioFinalCLP = amount
			}
		}
	}
	return nil
}

func (s *Shell) cmdAdminProductAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fields, err := parseFields(args, productFields)
	if err != nil {
		return err
	}
	p := api.Product{Disponible: true}
	if err := applyProductFields(&p, fields); err != nil {
		return err
	}
	if p.Nombre == "" {
		return errors.New("nombre is required")
	}

	created, err := s.client.CreateProduct(ctx, p)
	if err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, fmt.Sprintf("%s #%d", MsgProductCreated, created.ID))
	return nil
}

func (s *Shell) cmdAdminProductEdit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fields, err := parseFields(args[1:], productFields)
	if err != nil {
		return err
	}

	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := applyProductFields(p, fields); err != nil {
		return err
	}
	// The computed price is read-only
	p.PrecioCLP = nil

	if _, err := s.client.UpdateProduct(ctx, *p); err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, MsgProductUpdated)
	return nil
}

func (s *Shell) cmdAdminProductRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := s.client.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, MsgProductDeleted)
	return nil
}

func (s *Shell) cmdAdminConfig(ctx context.Context, args []string) error {
	cfg, err := s.client.CurrentConfiguration(ctx)
	if err != nil {
		return err
	}
	if cfg == nil {
		s.screen.Notify(session.LevelInfo, MsgConfigNotFound)
		return nil
	}
	s.printConfiguration(cfg)
	return nil
}

func (s *Shell) printConfiguration(cfg *api.Configuration) {
	dolar, updated := "-", "-"
	if cfg.DolarAduanero != nil {
		dolar = formatCLP(*cfg.DolarAduanero)
	}
	if cfg.FechaDolarAduanero != nil {
		updated = cfg.FechaDolarAduanero.Local().Format("2006-01-02 15:04")
	}
	s.screen.Heading("Pricing configuration")
	s.screen.Println(formatReplyText(`
		Commission:      %s %%
		Insurance:       %s %%
		Cost per kg:     %s
		Customs duty:    %s %%
		VAT:             %s %%
		Customs dollar:  %s (updated %s)`,
		cfg.PorcentajeComision, cfg.TasaSeguro, formatUSD(cfg.CostoPorKg), cfg.TasaArancel, cfg.TasaIVA, dolar, updated))
}

func (s *Shell) cmdAdminConfigSet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	fields, err := parseFields(args, configFields)
	if err != nil {
		return err
	}

	current, err := s.client.CurrentConfiguration(ctx)
	if err != nil {
		return err
	}
	cfg := api.DefaultConfiguration()
	if current != nil {
		cfg = *current
	}

	for key, value := range fields {
		a, err := parseAmountField(key, value)
		if err != nil {
			return err
		}
		switch key {
		case "porcentaje_comision":
			cfg.PorcentajeComision = a
		case "tasa_seguro":
			cfg.TasaSeguro = a
		case "costo_por_kg":
			cfg.CostoPorKg = a
		case "tasa_arancel":
			cfg.TasaArancel = a
		case "tasa_iva":
			cfg.TasaIVA = a
		case "dolar_aduanero":
			cfg.DolarAduanero = &a
		}
	}

	saved, err := s.client.SaveConfiguration(ctx, cfg)
	if err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, MsgConfigSaved)
	s.printConfiguration(saved)
	return nil
}
