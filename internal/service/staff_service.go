package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/middleware"
)

const (
	// StaffServiceName is the fully-qualified name of the StaffService.
	StaffServiceName = "tableside.v1.StaffService"

	StaffServiceGetCurrentStaffProcedure = "/tableside.v1.StaffService/GetCurrentStaff"
)

type GetCurrentStaffRequest struct{}

type GetCurrentStaffResponse struct {
	StaffID string `json:"staff_id"`
	Role    string `json:"role"`
}

// StaffService tells a terminal who its token belongs to. Tokens are issued
// outside the server (see cmd/stafftoken); there is no login here.
type StaffService struct{}

// NewStaffService creates a StaffService.
func NewStaffService() *StaffService {
	return &StaffService{}
}

// NewStaffServiceHandler builds an HTTP handler for every StaffService
// procedure and returns the path to mount it on.
func NewStaffServiceHandler(svc *StaffService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(StaffServiceGetCurrentStaffProcedure, connect.NewUnaryHandler(StaffServiceGetCurrentStaffProcedure, svc.GetCurrentStaff, opts...))
	return "/" + StaffServiceName + "/", mux
}

// GetCurrentStaff returns the identity carried by the caller's token.
func (s *StaffService) GetCurrentStaff(ctx context.Context, req *connect.Request[GetCurrentStaffRequest]) (*connect.Response[GetCurrentStaffResponse], error) {
	// Set by the auth interceptor
	staffID := middleware.GetStaffID(ctx)
	if staffID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	slog.Debug("GetCurrentStaff request", "staff_id", staffID)
	return connect.NewResponse(&GetCurrentStaffResponse{
		StaffID: staffID,
		Role:    string(middleware.GetRole(ctx)),
	}), nil
}
