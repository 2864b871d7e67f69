// Package grpcserver holds the gRPC plumbing of the catalog server: interceptors,
// bearer-token authentication and the mapping of service errors onto status codes.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/tunevault/internal/errs"
)

// ErrorDomain names the ErrorInfo domain attached to mapped statuses.
const ErrorDomain = "tunevault"

var kindCodes = []struct {
	kind error
	code codes.Code
}{
	{errs.ErrValidation, codes.InvalidArgument},
	{errs.ErrNotFound, codes.NotFound},
	{errs.ErrConflict, codes.AlreadyExists},
	{errs.ErrUnauthorized, codes.PermissionDenied},
	{errs.ErrDeletionFailed, codes.Aborted},
	{errs.ErrTransactionAborted, codes.Aborted},
	{errs.ErrDependency, codes.Unavailable},
}

// ToStatus converts a service error into a gRPC status error. Typed errors keep their
// code in an ErrorInfo detail; anything else becomes Internal without leaking the cause.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	var e *errs.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal")
	}
	c := codes.Internal
	for _, kc := range kindCodes {
		if errors.Is(e.Kind, kc.kind) {
			c = kc.code
			break
		}
	}
	st := status.New(c, e.Message)
	if ds, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: e.Code, Domain: ErrorDomain}); derr == nil {
		st = ds
	}
	return st.Err()
}

// CodeFromStatus returns the service error code carried by a status produced by ToStatus.
func CodeFromStatus(err error) string {
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

// ErrorsUnary returns a unary server interceptor mapping handler errors through ToStatus.
func ErrorsUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, ToStatus(err)
		}
		return resp, nil
	}
}
