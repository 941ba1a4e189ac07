package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/docgate/internal/errs"
)

// ErrorDomain is the ErrorInfo domain attached to conflict statuses.
const ErrorDomain = "docgate"

// toStatus maps a service error onto a gRPC status. Conflicts carry their
// stable reason both in the message and as an ErrorInfo detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, errs.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return conflictStatus(err)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	return status.Error(codes.Internal, "internal")
}

func conflictStatus(err error) error {
	var ce *errs.ConflictError
	if !errors.As(err, &ce) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	code := codes.FailedPrecondition
	if errors.Is(err, errs.ErrVersionMismatch) {
		code = codes.Aborted
	}
	st := status.New(code, ce.Reason+": "+ce.Error())
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: ce.Reason, Domain: ErrorDomain}); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// ConflictReason extracts the conflict reason from a status error returned by the server.
func ConflictReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
