// Command docgate-server starts the docgate gRPC server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "github.com/and161185/docgate/internal/api/docgatev1"
	"github.com/and161185/docgate/internal/blob"
	"github.com/and161185/docgate/internal/config"
	"github.com/and161185/docgate/internal/limiter"
	"github.com/and161185/docgate/internal/logging"
	"github.com/and161185/docgate/internal/migrate"
	"github.com/and161185/docgate/internal/notify"
	"github.com/and161185/docgate/internal/repository/postgres"
	grpcserver "github.com/and161185/docgate/internal/server/grpc"
	"github.com/and161185/docgate/internal/service"
	"github.com/and161185/docgate/internal/telemetry"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves docgate.v1.DocGate.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	flag.BoolVar(&cfg.Dev, "dev", cfg.Dev, "enable server reflection (dev only)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, "docgate", version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	blobs, err := blob.NewFS(cfg.BlobDir)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	// Repositories
	users := postgres.NewUserRepo(db)
	inboxRepo := postgres.NewNotificationRepo(db)

	// Notification sinks: the inbox always, NATS when configured
	sinks := notify.Multi{notify.NewStoreSink(inboxRepo)}
	if cfg.NATSURL != "" {
		nc, err := notify.Connect(cfg.NATSURL, "docgate-"+version)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nc.Drain() }()
		sinks = append(sinks, notify.NewNATSSink(nc, cfg.NATSSubjectPrefix))
		logger.Info("nats mirror enabled", zap.String("subject_prefix", cfg.NATSSubjectPrefix))
	}
	bc := notify.NewBroadcaster(users, sinks, logger,
		notify.WithAttempts(cfg.NotifyAttempts),
		notify.WithTimeout(cfg.NotifyTimeout))

	// Services
	docSvc := service.NewDocumentService(db, blobs, logger)
	approvalSvc := service.NewApprovalService(db, docSvc, bc, logger)
	inboxSvc := service.NewInboxService(inboxRepo)
	authSvc := service.NewAuthService(users, []byte(cfg.JWTKey), logger)

	var lim limiter.Limiter
	if cfg.AuthMaxFails > 0 {
		lim = limiter.NewPG(db.Pool, cfg.AuthWindow, cfg.AuthMaxFails, cfg.AuthBlockFor)
	}

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize()),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(authSvc, lim),
		),
	}
	if cfg.OTelEndpoint != "" {
		opts = append(opts, telemetry.ServerOption())
	}
	if cfg.TLS() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)

	// App service
	api.RegisterDocGateServer(s, grpcserver.New(docSvc, approvalSvc, inboxSvc, cfg.MaxUploadBytes))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	// Listen
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLS()))
		errCh <- s.Serve(lis)
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("graceful stop timed out")
			s.Stop()
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}
}
