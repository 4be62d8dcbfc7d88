package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/billing"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

const (
	// BillingServiceName is the fully-qualified name of the BillingService.
	BillingServiceName = "tableside.v1.BillingService"

	BillingServiceCreateBillProcedure        = "/tableside.v1.BillingService/CreateBill"
	BillingServiceSettlePaymentProcedure     = "/tableside.v1.BillingService/SettlePayment"
	BillingServiceMarkPaymentFailedProcedure = "/tableside.v1.BillingService/MarkPaymentFailed"
	BillingServiceListBillsProcedure         = "/tableside.v1.BillingService/ListBills"
)

type CreateBillRequest struct {
	OrderID string `json:"order_id"`
	// Omitted amounts take defaults: the order total, the configured tax
	// rate and no discount.
	Subtotal        *string `json:"subtotal,omitempty"`
	TaxPercent      *string `json:"tax_percent,omitempty"`
	DiscountPercent *string `json:"discount_percent,omitempty"`
}

type SettlePaymentRequest struct {
	BillID        string `json:"bill_id"`
	PaymentMethod string `json:"payment_method"`
	// TableID is optional; the order's own table is released either way.
	TableID string `json:"table_id,omitempty"`
}

type BillRequest struct {
	BillID string `json:"bill_id"`
}

type BillResponse struct {
	Bill *Bill `json:"bill"`
}

type ListBillsRequest struct {
	OrderID       string `json:"order_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	Since         int64  `json:"since,omitempty"`
}

type ListBillsResponse struct {
	Bills []*Bill `json:"bills"`
}

// BillingService implements the Connect BillingService.
type BillingService struct {
	engine *billing.Engine
}

// NewBillingService creates a BillingService.
func NewBillingService(engine *billing.Engine) *BillingService {
	return &BillingService{engine: engine}
}

// NewBillingServiceHandler builds an HTTP handler for every BillingService
// procedure and returns the path to mount it on.
func NewBillingServiceHandler(svc *BillingService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(BillingServiceCreateBillProcedure, connect.NewUnaryHandler(BillingServiceCreateBillProcedure, svc.CreateBill, opts...))
	mux.Handle(BillingServiceSettlePaymentProcedure, connect.NewUnaryHandler(BillingServiceSettlePaymentProcedure, svc.SettlePayment, opts...))
	mux.Handle(BillingServiceMarkPaymentFailedProcedure, connect.NewUnaryHandler(BillingServiceMarkPaymentFailedProcedure, svc.MarkPaymentFailed, opts...))
	mux.Handle(BillingServiceListBillsProcedure, connect.NewUnaryHandler(BillingServiceListBillsProcedure, svc.ListBills, opts...))
	return "/" + BillingServiceName + "/", mux
}

// CreateBill computes and stores a pending bill for an order.
func (s *BillingService) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[BillResponse], error) {
	slog.Info("CreateBill request received", "order_id", req.Msg.OrderID)

	subtotal, err := parseOptionalDecimal("subtotal", req.Msg.Subtotal)
	if err != nil {
		return nil, toConnectError("CreateBill", err)
	}
	tax, err := parseOptionalDecimal("tax_percent", req.Msg.TaxPercent)
	if err != nil {
		return nil, toConnectError("CreateBill", err)
	}
	discount, err := parseOptionalDecimal("discount_percent", req.Msg.DiscountPercent)
	if err != nil {
		return nil, toConnectError("CreateBill", err)
	}

	bill, err := s.engine.CreateBill(ctx, billing.BillRequest{
		OrderID:         req.Msg.OrderID,
		Subtotal:        subtotal,
		TaxPercent:      tax,
		DiscountPercent: discount,
	})
	if err != nil {
		return nil, toConnectError("CreateBill", err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(bill)}), nil
}

// SettlePayment marks a bill paid and frees its table in one step.
func (s *BillingService) SettlePayment(ctx context.Context, req *connect.Request[SettlePaymentRequest]) (*connect.Response[BillResponse], error) {
	slog.Info("SettlePayment request received", "bill_id", req.Msg.BillID, "method", req.Msg.PaymentMethod)

	bill, err := s.engine.Settle(ctx, req.Msg.BillID, models.PaymentMethod(req.Msg.PaymentMethod), req.Msg.TableID)
	if err != nil {
		return nil, toConnectError("SettlePayment", err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(bill)}), nil
}

// MarkPaymentFailed records a declined payment.
func (s *BillingService) MarkPaymentFailed(ctx context.Context, req *connect.Request[BillRequest]) (*connect.Response[BillResponse], error) {
	bill, err := s.engine.MarkFailed(ctx, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError("MarkPaymentFailed", err)
	}
	return connect.NewResponse(&BillResponse{Bill: toBill(bill)}), nil
}

// ListBills returns bills newest first.
func (s *BillingService) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	bills, err := s.engine.List(ctx, storage.BillFilter{
		OrderID: req.Msg.OrderID,
		Status:  models.PaymentStatus(req.Msg.PaymentStatus),
		Since:   req.Msg.Since,
	})
	if err != nil {
		return nil, toConnectError("ListBills", err)
	}
	out := make([]*Bill, len(bills))
	for i, b := range bills {
		out[i] = toBill(b)
	}
	return connect.NewResponse(&ListBillsResponse{Bills: out}), nil
}
