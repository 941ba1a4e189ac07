package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/limiter"
	"github.com/and161185/docgate/internal/model"
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
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/Method"}

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
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/Panic"}

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
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/Ok"}

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
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/Sleep"}
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

func TestLoggingUnary_InternalErrorPassthrough(t *testing.T) {
	t.Parallel()

	ic := LoggingUnary(zaptest.NewLogger(t))
	ctx := WithPrincipal(context.Background(), model.Principal{ID: uuid.Must(uuid.NewV4())})
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/Fail"}
	h := func(ctx context.Context, req any) (any, error) { return nil, status.Error(codes.Internal, "internal") }

	if _, err := ic(ctx, "req", info, h); status.Code(err) != codes.Internal {
		t.Fatalf("want Internal, got %v", err)
	}
}

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer xyz"))
	if got, err := bearerTokenFromMD(ctx); err != nil || got != "xyz" {
		t.Fatalf("scheme is case-insensitive: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

type fakeAuth struct {
	p     model.Principal
	err   error
	calls int
	last  string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (model.Principal, error) {
	f.calls++
	f.last = token
	return f.p, f.err
}

func TestAuthUnary_StoresPrincipal(t *testing.T) {
	t.Parallel()

	want := model.Principal{ID: uuid.Must(uuid.NewV4()), Name: "ann", Role: model.RoleUser}
	fa := &fakeAuth{p: want}
	ic := AuthUnary(fa, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/GetDocument"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer tok"))

	var got model.Principal
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = PrincipalFromCtx(ctx)
		return "ok", nil
	}
	if _, err := ic(ctx, "req", info, h); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != want || fa.last != "tok" {
		t.Fatalf("principal %+v token %q", got, fa.last)
	}
}

func TestAuthUnary_Rejects(t *testing.T) {
	t.Parallel()

	fa := &fakeAuth{err: errs.ErrUnauthorized}
	ic := AuthUnary(fa, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/GetDocument"}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	}

	if _, err := ic(context.Background(), "req", info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no token: want Unauthenticated, got %v", err)
	}
	if fa.calls != 0 {
		t.Fatalf("authenticator must not be called without a token")
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer bad"))
	if _, err := ic(ctx, "req", info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("bad token: want Unauthenticated, got %v", err)
	}
}

func TestAuthUnary_PublicMethods(t *testing.T) {
	t.Parallel()

	fa := &fakeAuth{err: errs.ErrUnauthorized}
	ic := AuthUnary(fa, nil)
	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	for _, m := range []string{"/grpc.health.v1.Health/Check", "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"} {
		if _, err := ic(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: m}, h); err != nil {
			t.Fatalf("%s: %v", m, err)
		}
	}
	if fa.calls != 0 {
		t.Fatalf("public methods must skip authentication")
	}
}

func TestAuthUnary_ThrottlesFailingPeer(t *testing.T) {
	t.Parallel()

	fa := &fakeAuth{err: errs.ErrUnauthorized}
	ic := AuthUnary(fa, limiter.NewMemory(time.Minute, 2, time.Minute))
	info := &grpc.UnaryServerInfo{FullMethod: "/docgate.v1.DocGate/GetDocument"}
	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	bad := metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", "Bearer bad"))
	for i := 0; i < 2; i++ {
		if _, err := ic(bad, "req", info, h); status.Code(err) != codes.Unauthenticated {
			t.Fatalf("attempt %d: want Unauthenticated, got %v", i, err)
		}
	}
	if _, err := ic(bad, "req", info, h); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("want ResourceExhausted, got %v", err)
	}
	if fa.calls != 2 {
		t.Fatalf("blocked peer must not reach the authenticator, calls=%d", fa.calls)
	}

	// a different peer is unaffected
	other := peer.NewContext(context.Background(), &peer.Peer{Addr: otherAddr{}})
	fa.err = nil
	good := metadata.NewIncomingContext(other, metadata.Pairs("authorization", "Bearer ok"))
	if _, err := ic(good, "req", info, h); err != nil {
		t.Fatalf("other peer: %v", err)
	}
}

type otherAddr struct{}

func (otherAddr) Network() string { return "tcp" }
func (otherAddr) String() string  { return "10.9.9.9:4000" }
