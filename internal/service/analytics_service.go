package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/calculator"
)

const (
	// AnalyticsServiceName is the fully-qualified name of the AnalyticsService.
	AnalyticsServiceName = "tableside.v1.AnalyticsService"

	AnalyticsServiceGetSummaryProcedure = "/tableside.v1.AnalyticsService/GetSummary"
)

type GetSummaryRequest struct{}

type GetSummaryResponse struct {
	Summary *Summary `json:"summary"`
}

// SummarySource yields the current daily summary.
type SummarySource interface {
	Get(ctx context.Context) (calculator.Summary, error)
}

// AnalyticsService implements the Connect AnalyticsService.
type AnalyticsService struct {
	board SummarySource
}

// NewAnalyticsService creates an AnalyticsService reading from board.
func NewAnalyticsService(board SummarySource) *AnalyticsService {
	return &AnalyticsService{board: board}
}

// NewAnalyticsServiceHandler builds an HTTP handler for every
// AnalyticsService procedure and returns the path to mount it on.
func NewAnalyticsServiceHandler(svc *AnalyticsService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AnalyticsServiceGetSummaryProcedure, connect.NewUnaryHandler(AnalyticsServiceGetSummaryProcedure, svc.GetSummary, opts...))
	return "/" + AnalyticsServiceName + "/", mux
}

// GetSummary returns today's front-of-house summary.
func (s *AnalyticsService) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error) {
	summary, err := s.board.Get(ctx)
	if err != nil {
		return nil, toConnectError("GetSummary", err)
	}
	return connect.NewResponse(&GetSummaryResponse{Summary: toSummary(summary)}), nil
}
