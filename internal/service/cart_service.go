package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/cart"
	"github.com/mmynk/tableside/internal/menu"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/orders"
	"github.com/mmynk/tableside/internal/upsell"
	"github.com/mmynk/tableside/internal/validation"
)

const (
	// CartServiceName is the fully-qualified name of the CartService.
	CartServiceName = "tableside.v1.CartService"

	CartServiceAddItemProcedure        = "/tableside.v1.CartService/AddItem"
	CartServiceUpdateQuantityProcedure = "/tableside.v1.CartService/UpdateQuantity"
	CartServiceRemoveItemProcedure     = "/tableside.v1.CartService/RemoveItem"
	CartServiceGetCartProcedure        = "/tableside.v1.CartService/GetCart"
	CartServicePlaceOrderProcedure     = "/tableside.v1.CartService/PlaceOrder"
)

type CartItemRequest struct {
	SessionID  string `json:"session_id"`
	MenuItemID string `json:"menu_item_id"`
}

type UpdateQuantityRequest struct {
	SessionID  string `json:"session_id"`
	MenuItemID string `json:"menu_item_id"`
	Delta      int    `json:"delta"`
}

type GetCartRequest struct {
	SessionID string `json:"session_id"`
}

type CartResponse struct {
	Cart *Cart `json:"cart"`
}

type PlaceOrderRequest struct {
	SessionID    string `json:"session_id"`
	TableID      string `json:"table_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	OrderType    string `json:"order_type"`
}

type OrderResponse struct {
	Order *Order `json:"order"`
}

// CartService implements the Connect CartService. Carts live in memory
// per terminal session until they are placed as an order.
type CartService struct {
	catalog  *menu.Catalog
	sessions *cart.Sessions
	upsell   *upsell.Engine
	orders   *orders.Manager
}

// NewCartService creates a CartService.
func NewCartService(catalog *menu.Catalog, sessions *cart.Sessions, engine *upsell.Engine, manager *orders.Manager) *CartService {
	return &CartService{catalog: catalog, sessions: sessions, upsell: engine, orders: manager}
}

// NewCartServiceHandler builds an HTTP handler for every CartService
// procedure and returns the path to mount it on.
func NewCartServiceHandler(svc *CartService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(CartServiceAddItemProcedure, connect.NewUnaryHandler(CartServiceAddItemProcedure, svc.AddItem, opts...))
	mux.Handle(CartServiceUpdateQuantityProcedure, connect.NewUnaryHandler(CartServiceUpdateQuantityProcedure, svc.UpdateQuantity, opts...))
	mux.Handle(CartServiceRemoveItemProcedure, connect.NewUnaryHandler(CartServiceRemoveItemProcedure, svc.RemoveItem, opts...))
	mux.Handle(CartServiceGetCartProcedure, connect.NewUnaryHandler(CartServiceGetCartProcedure, svc.GetCart, opts...))
	mux.Handle(CartServicePlaceOrderProcedure, connect.NewUnaryHandler(CartServicePlaceOrderProcedure, svc.PlaceOrder, opts...))
	return "/" + CartServiceName + "/", mux
}

func requireSession(sessionID string) error {
	if sessionID == "" {
		return validation.Error{Field: "session_id", Message: "session is required"}
	}
	return nil
}

// cartState is a consistent copy of a cart taken under the session lock.
type cartState struct {
	lines []cart.Line
	items []models.MenuItem
	total decimal.Decimal
}

func snapshot(c *cart.Cart) cartState {
	return cartState{lines: c.Lines(), items: c.Items(), total: c.Total()}
}

// mutate applies fn to the session's cart and returns the resulting cart
// with fresh suggestions. Only AddItem opens a cart; other calls on a
// session without one see an empty cart.
func (s *CartService) mutate(ctx context.Context, op, sessionID string, open bool, fn func(c *cart.Cart)) (*connect.Response[CartResponse], error) {
	if err := requireSession(sessionID); err != nil {
		return nil, toConnectError(op, err)
	}
	do := s.sessions.With
	if open {
		do = s.sessions.Do
	}
	var state cartState
	if err := do(sessionID, func(c *cart.Cart) error {
		fn(c)
		state = snapshot(c)
		return nil
	}); err != nil {
		return nil, toConnectError(op, err)
	}
	return s.respond(ctx, op, sessionID, state)
}

func (s *CartService) respond(ctx context.Context, op, sessionID string, state cartState) (*connect.Response[CartResponse], error) {
	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, toConnectError(op, err)
	}
	suggestions := s.upsell.Suggest(catalog, state.items)
	return connect.NewResponse(&CartResponse{Cart: toCart(sessionID, state.lines, state.total, suggestions)}), nil
}

// AddItem adds one unit of an available menu item to the cart.
func (s *CartService) AddItem(ctx context.Context, req *connect.Request[CartItemRequest]) (*connect.Response[CartResponse], error) {
	if err := requireSession(req.Msg.SessionID); err != nil {
		return nil, toConnectError("AddItem", err)
	}
	item, err := s.catalog.Get(ctx, req.Msg.MenuItemID)
	if err != nil {
		return nil, toConnectError("AddItem", err)
	}
	if !item.IsAvailable {
		return nil, toConnectError("AddItem", validation.Error{Field: "menu_item_id", Message: "item is not available"})
	}
	return s.mutate(ctx, "AddItem", req.Msg.SessionID, true, func(c *cart.Cart) { c.Add(*item) })
}

// UpdateQuantity changes an entry's quantity by delta, removing it when
// the quantity drops to zero or below.
func (s *CartService) UpdateQuantity(ctx context.Context, req *connect.Request[UpdateQuantityRequest]) (*connect.Response[CartResponse], error) {
	return s.mutate(ctx, "UpdateQuantity", req.Msg.SessionID, false, func(c *cart.Cart) {
		c.UpdateQuantity(req.Msg.MenuItemID, req.Msg.Delta)
	})
}

// RemoveItem drops an entry from the cart.
func (s *CartService) RemoveItem(ctx context.Context, req *connect.Request[CartItemRequest]) (*connect.Response[CartResponse], error) {
	return s.mutate(ctx, "RemoveItem", req.Msg.SessionID, false, func(c *cart.Cart) {
		c.Remove(req.Msg.MenuItemID)
	})
}

// GetCart returns the cart with its total and suggestions.
func (s *CartService) GetCart(ctx context.Context, req *connect.Request[GetCartRequest]) (*connect.Response[CartResponse], error) {
	return s.mutate(ctx, "GetCart", req.Msg.SessionID, false, func(*cart.Cart) {})
}

// PlaceOrder turns the cart into an order. The cart is emptied under the
// session lock once the order is placed, so a repeated call finds nothing
// to place. On any error the cart is kept so the terminal can retry.
func (s *CartService) PlaceOrder(ctx context.Context, req *connect.Request[PlaceOrderRequest]) (*connect.Response[OrderResponse], error) {
	if err := requireSession(req.Msg.SessionID); err != nil {
		return nil, toConnectError("PlaceOrder", err)
	}

	var order *models.Order
	err := s.sessions.With(req.Msg.SessionID, func(c *cart.Cart) error {
		placed, err := s.orders.CreateFromCart(ctx, c, req.Msg.TableID, req.Msg.CustomerName, models.OrderType(req.Msg.OrderType))
		if err != nil {
			return err
		}
		c.Clear()
		order = placed
		return nil
	})
	if err != nil {
		return nil, toConnectError("PlaceOrder", err)
	}

	slog.Info("Cart placed", "session_id", req.Msg.SessionID, "order_id", order.ID)
	return connect.NewResponse(&OrderResponse{Order: toOrder(order)}), nil
}
