package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tableside/internal/billing"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/validation"
)

// toConnectError maps component errors to RPC codes. Unknown failures are
// logged and reported as internal.
func toConnectError(op string, err error) error {
	var code connect.Code
	switch {
	case validation.IsValidation(err):
		code = connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, storage.ErrConflict):
		// Retryable: the caller should re-read and try again.
		code = connect.CodeAborted
	case errors.Is(err, billing.ErrBillExists), errors.Is(err, storage.ErrDuplicate):
		code = connect.CodeAlreadyExists
	case errors.Is(err, models.ErrInvalidTransition):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, err)
	}
	slog.Debug(op+" rejected", "code", code, "error", err)
	return connect.NewError(code, err)
}
