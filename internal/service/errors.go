package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/troopledger/internal/ledger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the request's struct tags.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// toConnectError maps ledger errors to connect codes. Unexpected errors are
// logged and reported as internal.
func toConnectError(logger *slog.Logger, op string, err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, ledger.ErrForbidden):
		code = connect.CodePermissionDenied
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, ledger.ErrUnbalancedEntry),
		errors.Is(err, ledger.ErrReasonRequired):
		code = connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrAlreadyVoid),
		errors.Is(err, ledger.ErrAlreadyPaid),
		errors.Is(err, ledger.ErrHasPaidCharges),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrOverpayment),
		errors.Is(err, ledger.ErrEntryManaged),
		errors.Is(err, ledger.ErrNotLinked),
		errors.Is(err, ledger.ErrNotSettled),
		errors.Is(err, ledger.ErrAccountMismatch),
		errors.Is(err, ledger.ErrAmountMismatch),
		errors.Is(err, ledger.ErrAlreadyReconciled):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, ledger.ErrGatewayUnavailable):
		code = connect.CodeUnavailable
	case errors.Is(err, ledger.ErrExternalCaptureFailed):
		code = connect.CodeAborted
	case ledger.IsRetryable(err):
		code = connect.CodeUnavailable
	default:
		logger.Error(op+" failed", "error", err)
	}
	return connect.NewError(code, err)
}
