package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/orders"
)

const (
	// OrderServiceName is the fully-qualified name of the OrderService.
	OrderServiceName = "tableside.v1.OrderService"

	OrderServiceCreateOrderProcedure       = "/tableside.v1.OrderService/CreateOrder"
	OrderServiceUpdateOrderStatusProcedure = "/tableside.v1.OrderService/UpdateOrderStatus"
	OrderServiceGetOrderProcedure          = "/tableside.v1.OrderService/GetOrder"
	OrderServiceListOrdersProcedure        = "/tableside.v1.OrderService/ListOrders"
)

type LineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type CreateOrderRequest struct {
	TableID      string        `json:"table_id,omitempty"`
	CustomerName string        `json:"customer_name,omitempty"`
	OrderType    string        `json:"order_type"`
	Lines        []LineRequest `json:"lines"`
}

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type ListOrdersRequest struct {
	// Since is a Unix time; zero lists every order.
	Since int64 `json:"since,omitempty"`
}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}

// OrderService implements the Connect OrderService.
type OrderService struct {
	orders *orders.Manager
}

// NewOrderService creates an OrderService.
func NewOrderService(manager *orders.Manager) *OrderService {
	return &OrderService{orders: manager}
}

// NewOrderServiceHandler builds an HTTP handler for every OrderService
// procedure and returns the path to mount it on.
func NewOrderServiceHandler(svc *OrderService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(OrderServiceCreateOrderProcedure, connect.NewUnaryHandler(OrderServiceCreateOrderProcedure, svc.CreateOrder, opts...))
	mux.Handle(OrderServiceUpdateOrderStatusProcedure, connect.NewUnaryHandler(OrderServiceUpdateOrderStatusProcedure, svc.UpdateOrderStatus, opts...))
	mux.Handle(OrderServiceGetOrderProcedure, connect.NewUnaryHandler(OrderServiceGetOrderProcedure, svc.GetOrder, opts...))
	mux.Handle(OrderServiceListOrdersProcedure, connect.NewUnaryHandler(OrderServiceListOrdersProcedure, svc.ListOrders, opts...))
	return "/" + OrderServiceName + "/", mux
}

// CreateOrder places an order. Losing a race for the table is reported as
// Aborted and leaves nothing behind.
func (s *OrderService) CreateOrder(ctx context.Context, req *connect.Request[CreateOrderRequest]) (*connect.Response[OrderResponse], error) {
	slog.Info("CreateOrder request received",
		"order_type", req.Msg.OrderType,
		"table_id", req.Msg.TableID,
		"lines_count", len(req.Msg.Lines),
	)

	lines := make([]models.LineRequest, len(req.Msg.Lines))
	for i, l := range req.Msg.Lines {
		lines[i] = models.LineRequest{MenuItemID: l.MenuItemID, Quantity: l.Quantity}
	}
	order, err := s.orders.Create(ctx, orders.CreateRequest{
		TableID:      req.Msg.TableID,
		CustomerName: req.Msg.CustomerName,
		Type:         models.OrderType(req.Msg.OrderType),
		Lines:        lines,
	})
	if err != nil {
		return nil, toConnectError("CreateOrder", err)
	}
	return connect.NewResponse(&OrderResponse{Order: toOrder(order)}), nil
}

// UpdateOrderStatus advances an order to the next kitchen stage.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req *connect.Request[UpdateOrderStatusRequest]) (*connect.Response[OrderResponse], error) {
	order, err := s.orders.UpdateStatus(ctx, req.Msg.OrderID, models.OrderStatus(req.Msg.Status))
	if err != nil {
		return nil, toConnectError("UpdateOrderStatus", err)
	}
	return connect.NewResponse(&OrderResponse{Order: toOrder(order)}), nil
}

// GetOrder returns one order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, req *connect.Request[GetOrderRequest]) (*connect.Response[OrderResponse], error) {
	order, err := s.orders.Get(ctx, req.Msg.OrderID)
	if err != nil {
		return nil, toConnectError("GetOrder", err)
	}
	return connect.NewResponse(&OrderResponse{Order: toOrder(order)}), nil
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, req *connect.Request[ListOrdersRequest]) (*connect.Response[ListOrdersResponse], error) {
	var since time.Time
	if req.Msg.Since > 0 {
		since = time.Unix(req.Msg.Since, 0)
	}
	list, err := s.orders.List(ctx, since)
	if err != nil {
		return nil, toConnectError("ListOrders", err)
	}
	out := make([]*Order, len(list))
	for i, o := range list {
		out[i] = toOrder(o)
	}
	return connect.NewResponse(&ListOrdersResponse{Orders: out}), nil
}
