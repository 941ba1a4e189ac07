package grpcserver

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/docgate/internal/limiter"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/service"
)

// LoggingUnary returns a unary server interceptor for structured logging.
// Only metadata is logged, never payloads.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		}
		if p, ok := PrincipalFromCtx(ctx); ok {
			fields = append(fields, zap.String("user_id", p.ID.String()))
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Warn("grpc", append(fields, zap.Error(err))...)
		} else {
			log.Info("grpc", fields...)
		}
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// public methods are served without a bearer token.
var publicPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

// AuthUnary resolves "authorization: Bearer <JWT>" into a Principal stored in the context.
// When lim is non-nil, peers that keep failing authentication are turned away with
// ResourceExhausted until their block expires. Limiter errors do not block requests.
func AuthUnary(auth service.AuthService, lim limiter.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		for _, p := range publicPrefixes {
			if strings.HasPrefix(info.FullMethod, p) {
				return next(ctx, req)
			}
		}

		var peerKey []byte
		if lim != nil {
			peerKey = limiter.HashPeer(peerAddr(ctx))
			if ok, retry, err := lim.Allow(ctx, peerKey); err == nil && !ok {
				return nil, status.Errorf(codes.ResourceExhausted, "too many failed attempts, retry in %s", retry.Round(time.Second))
			}
		}

		tok, err := bearerTokenFromMD(ctx)
		if err == nil {
			var p model.Principal
			if p, err = auth.Authenticate(ctx, tok); err == nil {
				return next(WithPrincipal(ctx, p), req)
			}
			err = errors.New("invalid token")
		}
		if lim != nil {
			_, _, _ = lim.Failure(ctx, peerKey)
		}
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
