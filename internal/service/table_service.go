package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/tables"
)

const (
	// TableServiceName is the fully-qualified name of the TableService.
	TableServiceName = "tableside.v1.TableService"

	TableServiceListTablesProcedure        = "/tableside.v1.TableService/ListTables"
	TableServiceAddTableProcedure          = "/tableside.v1.TableService/AddTable"
	TableServiceReserveTableProcedure      = "/tableside.v1.TableService/ReserveTable"
	TableServiceCancelReservationProcedure = "/tableside.v1.TableService/CancelReservation"
)

type ListTablesRequest struct{}

type ListTablesResponse struct {
	Tables []*Table `json:"tables"`
}

type AddTableRequest struct {
	Name        string `json:"name"`
	TableNumber *int   `json:"table_number,omitempty"`
	Capacity    int    `json:"capacity"`
}

type TableRequest struct {
	TableID string `json:"table_id"`
}

type TableResponse struct {
	Table *Table `json:"table"`
}

// TableService implements the Connect TableService.
type TableService struct {
	registry *tables.Registry
}

// NewTableService creates a TableService on the given registry.
func NewTableService(registry *tables.Registry) *TableService {
	return &TableService{registry: registry}
}

// NewTableServiceHandler builds an HTTP handler for every TableService
// procedure and returns the path to mount it on.
func NewTableServiceHandler(svc *TableService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(TableServiceListTablesProcedure, connect.NewUnaryHandler(TableServiceListTablesProcedure, svc.ListTables, opts...))
	mux.Handle(TableServiceAddTableProcedure, connect.NewUnaryHandler(TableServiceAddTableProcedure, svc.AddTable, opts...))
	mux.Handle(TableServiceReserveTableProcedure, connect.NewUnaryHandler(TableServiceReserveTableProcedure, svc.ReserveTable, opts...))
	mux.Handle(TableServiceCancelReservationProcedure, connect.NewUnaryHandler(TableServiceCancelReservationProcedure, svc.CancelReservation, opts...))
	return "/" + TableServiceName + "/", mux
}

// ListTables returns every table ordered by name.
func (s *TableService) ListTables(ctx context.Context, req *connect.Request[ListTablesRequest]) (*connect.Response[ListTablesResponse], error) {
	list, err := s.registry.List(ctx)
	if err != nil {
		return nil, toConnectError("ListTables", err)
	}
	out := make([]*Table, len(list))
	for i, t := range list {
		out[i] = toTable(t)
	}
	return connect.NewResponse(&ListTablesResponse{Tables: out}), nil
}

// AddTable registers a new, available table.
func (s *TableService) AddTable(ctx context.Context, req *connect.Request[AddTableRequest]) (*connect.Response[TableResponse], error) {
	slog.Info("AddTable request received", "name", req.Msg.Name, "capacity", req.Msg.Capacity)

	table, err := s.registry.Add(ctx, req.Msg.Name, req.Msg.TableNumber, req.Msg.Capacity)
	if err != nil {
		return nil, toConnectError("AddTable", err)
	}
	return connect.NewResponse(&TableResponse{Table: toTable(table)}), nil
}

// ReserveTable holds an available table.
func (s *TableService) ReserveTable(ctx context.Context, req *connect.Request[TableRequest]) (*connect.Response[TableResponse], error) {
	table, err := s.registry.Apply(ctx, req.Msg.TableID, models.Reserve{})
	if err != nil {
		return nil, toConnectError("ReserveTable", err)
	}
	return connect.NewResponse(&TableResponse{Table: toTable(table)}), nil
}

// CancelReservation makes a reserved table available again.
func (s *TableService) CancelReservation(ctx context.Context, req *connect.Request[TableRequest]) (*connect.Response[TableResponse], error) {
	table, err := s.registry.Apply(ctx, req.Msg.TableID, models.CancelReservation{})
	if err != nil {
		return nil, toConnectError("CancelReservation", err)
	}
	return connect.NewResponse(&TableResponse{Table: toTable(table)}), nil
}
