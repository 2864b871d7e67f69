package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/tunevault/internal/errs"
)

func TestToStatus_Kinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code codes.Code
		tag  string
	}{
		{"validation", errs.Validation(errs.CodeInvalidSort, "unknown sort field"), codes.InvalidArgument, errs.CodeInvalidSort},
		{"not found", errs.NotFound(errs.CodeSongNotFound, "track not found"), codes.NotFound, errs.CodeSongNotFound},
		{"conflict", errs.Conflict(errs.CodeAlreadyShared, "shared"), codes.AlreadyExists, errs.CodeAlreadyShared},
		{"unauthorized", errs.Unauthorized(errs.CodeUnauthorized, "owner only"), codes.PermissionDenied, errs.CodeUnauthorized},
		{
			"deletion",
			errs.Wrap(errs.ErrDeletionFailed, errs.CodePlaylistDeletion, "could not delete",
				errs.Wrap(errs.ErrTransactionAborted, errs.CodeTxAborted, "rolled back", errors.New("io"))),
			codes.Aborted, errs.CodePlaylistDeletion,
		},
		{"wrapped", fmt.Errorf("handler: %w", errs.NotFound(errs.CodeAlbumNotFound, "gone")), codes.NotFound, errs.CodeAlbumNotFound},
		{"untyped", errors.New("connection refused"), codes.Internal, ""},
		{"canceled", context.Canceled, codes.Canceled, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ToStatus(tc.err)
			require.Equal(t, tc.code, status.Code(got))
			require.Equal(t, tc.tag, CodeFromStatus(got))
		})
	}
}

func TestToStatus_HidesUntypedCause(t *testing.T) {
	t.Parallel()

	st, _ := status.FromError(ToStatus(errors.New("password=hunter2")))
	require.Equal(t, "internal", st.Message())
}

func TestToStatus_PassesStatusThrough(t *testing.T) {
	t.Parallel()

	in := status.Error(codes.Unauthenticated, "no auth")
	require.Equal(t, in, ToStatus(in))
	require.NoError(t, ToStatus(nil))
}

func TestErrorsUnary(t *testing.T) {
	t.Parallel()

	ic := ErrorsUnary()
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/AddTrack"}
	h := func(ctx context.Context, req any) (any, error) {
		return "partial", errs.Conflict(errs.CodeAddSongConflict, "already in playlist")
	}

	resp, err := ic(context.Background(), "req", info, h)
	require.Nil(t, resp)
	require.Equal(t, codes.AlreadyExists, status.Code(err))
	require.Equal(t, errs.CodeAddSongConflict, CodeFromStatus(err))
}
