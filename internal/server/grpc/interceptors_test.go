package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/tunevault/internal/errs"
	"github.com/and161185/tunevault/internal/metrics"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()

	ctx = peer.NewContext(ctx, &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/Method"}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/Panic"}

	panicH := func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	}

	_, err := ic(ctx, "req", info, panicH)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/Ok"}

	h := func(ctx context.Context, req any) (any, error) { return 42, nil }

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(int) != 42 {
		t.Fatalf("resp mismatch: %v", resp)
	}
}

func TestLoggingUnary_DurationFieldDoesNotBlock(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/Sleep"}
	h := func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}

	start := time.Now()
	resp, err := ic(ctx, "req", info, h)
	if err != nil || resp.(string) != "done" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("duration should reflect handler time")
	}
}

func TestLoggingUnary_LogsMappedFailures(t *testing.T) {
	t.Parallel()

	ic := LoggingUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/DeletePlaylist"}
	mapped := ToStatus(errs.NotFound(errs.CodePlaylistNotFound, "playlist not found"))
	h := func(ctx context.Context, req any) (any, error) { return nil, mapped }

	_, err := ic(context.Background(), "req", info, h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("want NotFound passthrough, got: %v", err)
	}
}

func TestMetricsUnary_ObservesByCode(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	ic := MetricsUnary(metrics.New(reg))
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/GetTrack"}

	ok := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	bad := func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	}
	if _, err := ic(context.Background(), "req", info, ok); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := ic(context.Background(), "req", info, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument, got: %v", err)
	}

	if n := testutil.CollectAndCount(reg, "tunevault_grpc_request_duration_seconds"); n != 2 {
		t.Fatalf("want 2 series (OK, InvalidArgument), got %d", n)
	}
}

func TestMetricsUnary_NilRecorder(t *testing.T) {
	t.Parallel()

	ic := MetricsUnary(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/tunevault.v1.Catalog/GetTrack"}
	h := func(ctx context.Context, req any) (any, error) { return 1, nil }
	if _, err := ic(context.Background(), "req", info, h); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
