package rpc

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"bizdiag/internal/diagnosis"
	"bizdiag/internal/export"
	"bizdiag/internal/orchestrator"
	"bizdiag/internal/pipeline"
	"bizdiag/internal/repository/cases"
	"bizdiag/internal/todo"
)

// toConnectError maps domain failures onto connect codes. Stage failures
// carry the user-facing message.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return err
	}
	msg := err
	var se *pipeline.StageError
	if errors.As(err, &se) {
		msg = errors.New(se.UserMessage())
	}
	return connect.NewError(codeOf(err), msg)
}

func codeOf(err error) connect.Code {
	switch pipeline.KindOf(err) {
	case pipeline.KindUnavailable:
		return connect.CodeUnavailable
	case pipeline.KindMalformed:
		return connect.CodeDataLoss
	}
	var stateErr *diagnosis.StateError
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, orchestrator.ErrSessionNotFound),
		errors.Is(err, cases.ErrNotFound),
		errors.Is(err, todo.ErrNotFound):
		return connect.CodeNotFound
	case pipeline.IsValidation(err),
		errors.Is(err, diagnosis.ErrInvalidAnswer),
		errors.Is(err, todo.ErrEmptyText):
		return connect.CodeInvalidArgument
	case errors.Is(err, orchestrator.ErrStageBusy),
		errors.Is(err, orchestrator.ErrMissingInput),
		errors.Is(err, diagnosis.ErrBusy),
		errors.Is(err, diagnosis.ErrLocked),
		errors.As(err, &stateErr),
		errors.Is(err, export.ErrIncomplete),
		errors.Is(err, cases.ErrIncomplete):
		return connect.CodeFailedPrecondition
	case errors.Is(err, orchestrator.ErrStale), errors.Is(err, diagnosis.ErrSuperseded):
		return connect.CodeAborted
	}
	return connect.CodeInternal
}
