package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/raine/storefront/internal/api"
	"github.com/raine/storefront/internal/cart"
	"github.com/raine/storefront/internal/session"
)

var filterFields = []string{"marca", "disponible", "ordering", "page"}

// parseFilter treats key=value arguments as filters and the rest as the
// search text.
func parseFilter(args []string) (api.ProductFilter, error) {
	var filter api.ProductFilter
	var search, kv []string
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			kv = append(kv, arg)
		} else {
			search = append(search, arg)
		}
	}
	filter.Search = strings.Join(search, " ")

	fields, err := parseFields(kv, filterFields)
	if err != nil {
		return filter, err
	}
	for key, value := range fields {
		switch key {
		case "marca":
			filter.Marca = value
		case "ordering":
			filter.Ordering = value
		case "disponible":
			b, err := parseBoolField(key, value)
			if err != nil {
				return filter, err
			}
			filter.Disponible = &b
		case "page":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return filter, fmt.Errorf(MsgInvalidArgument, key, value)
			}
			filter.Page = n
		}
	}
	return filter, nil
}

func (s *Shell) cmdProducts(ctx context.Context, args []string) error {
	filter, err := parseFilter(args)
	if err != nil {
		return err
	}
	list, err := s.client.ListProducts(ctx, filter)
	if err != nil {
		return err
	}
	if len(list.Items) == 0 {
		s.screen.Println(MsgNoProducts)
		return nil
	}

	for _, p := range list.Items {
		line := fmt.Sprintf("#%-4d %s (%s)  %s  %s", p.ID, p.Nombre, p.Marca, formatUSD(p.USD()), formatCLP(p.CLP()))
		if !p.Disponible {
			line += "  [unavailable]"
		}
		s.screen.Println(line)
	}
	if list.Count > len(list.Items) {
		s.screen.Muted(fmt.Sprintf("Showing %d of %s products", len(list.Items), humanize.Comma(int64(list.Count))))
	}
	return nil
}

func (s *Shell) cmdProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	s.screen.Heading(p.Nombre)
	s.screen.Println(formatReplyText(`
		Brand:      %s
		Price:      %s / %s
		Weight:     %s kg
		Available:  %s`,
		p.Marca, formatUSD(p.USD()), formatCLP(p.CLP()), weight(p.PesoKg), yesNo(p.Disponible)))
	if p.Descripcion != "" {
		s.screen.Println()
		s.screen.Println(p.Descripcion)
	}
	return nil
}

func weight(a *api.Amount) string {
	if a == nil {
		return "-"
	}
	return a.String()
}

func (s *Shell) cmdCart(ctx context.Context, args []string) error {
	items := s.cart.Items()
	if len(items) == 0 {
		s.screen.Println(MsgCartEmpty)
		return nil
	}
	for _, item := range items {
		s.screen.Println(fmt.Sprintf("#%-4d %s x%d  %s  %s", item.ID, item.Nombre, item.Quantity,
			formatUSD(item.USD()*api.Amount(item.Quantity)), formatCLP(item.CLP()*api.Amount(item.Quantity))))
	}
	s.screen.Heading(fmt.Sprintf("Total (%d items): %s  %s", s.cart.Count(), formatUSD(s.cart.TotalUSD()), formatCLP(s.cart.TotalCLP())))
	return nil
}

func (s *Shell) cmdCartAdd(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	quantity := 1
	if len(args) == 2 {
		if quantity, err = strconv.Atoi(args[1]); err != nil || quantity < 1 {
			return cart.ErrInvalidQuantity
		}
	}

	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !p.Disponible {
		s.screen.Notify(session.LevelWarning, fmt.Sprintf(MsgUnavailable, p.Nombre))
		return nil
	}

	if err := s.cart.Add(ctx, *p); err != nil {
		return err
	}
	if quantity > 1 {
		if err := s.cart.UpdateQuantity(ctx, p.ID, s.quantityOf(p.ID)+quantity-1); err != nil {
			return err
		}
	}
	s.screen.Notify(session.LevelSuccess, fmt.Sprintf(MsgAddedToCart, p.Nombre))
	return nil
}

func (s *Shell) quantityOf(productID int) int {
	for _, item := range s.cart.Items() {
		if item.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

func (s *Shell) cmdCartRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := s.cart.Remove(ctx, id); err != nil {
		return err
	}
	s.screen.Notify(session.LevelInfo, MsgRemovedFromCart)
	return nil
}

func (s *Shell) cmdCartQuantity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return cart.ErrInvalidQuantity
	}
	if err := s.cart.UpdateQuantity(ctx, id, quantity); err != nil {
		return err
	}
	s.screen.Notify(session.LevelInfo, MsgQuantityUpdated)
	return nil
}

func (s *Shell) cmdCartClear(ctx context.Context, args []string) error {
	if err := s.cart.Clear(ctx); err != nil {
		return err
	}
	s.screen.Notify(session.LevelInfo, MsgCartCleared)
	return nil
}

func (s *Shell) cmdCheckout(ctx context.Context, args []string) error {
	order, err := s.cart.Checkout(ctx, s.client)
	if err != nil {
		return err
	}
	s.screen.Notify(session.LevelSuccess, fmt.Sprintf(MsgOrderPlaced, order.ID))
	s.screen.Navigate(session.RouteOrders)
	s.printOrder(*order)
	return nil
}

func (s *Shell) cmdOrders(ctx context.Context, args []string) error {
	list, err := s.client.ListOrders(ctx)
	if err != nil {
		return err
	}
	if len(list.Items) == 0 {
		s.screen.Println(MsgNoOrders)
		return nil
	}
	for _, order := range list.Items {
		s.printOrder(order)
	}
	return nil
}

func (s *Shell) printOrder(o api.Order) {
	date := "-"
	if !o.FechaPedido.IsZero() {
		date = o.FechaPedido.Local().Format("2006-01-02 15:04")
	}
	total := o.TotalFinalCLP
	if total == 0 {
		total = o.TotalCLP
	}
	s.screen.Println(fmt.Sprintf("Order #%d  %s  %s  %d lines  %s  %s",
		o.ID, date, o.StatusLabel(), len(o.Detalles), formatUSD(o.TotalUSD), formatCLP(total)))
}
