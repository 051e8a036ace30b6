package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/nftmint/config"
	"xdao.co/nftmint/ledgerrpc"
	"xdao.co/nftmint/logging"
	"xdao.co/nftmint/storage/registry"

	_ "xdao.co/nftmint/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	fs := flag.NewFlagSet("mintd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfg.RegisterFlags(fs)
	listStores := fs.Bool("list-stores", false, "List supported account stores and exit")
	registry.RegisterFlags(fs, registry.UsageDaemon)
	if cfg.SQLitePath != "" {
		_ = fs.Set("sqlite-path", cfg.SQLitePath)
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *listStores {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()
	ctx = logging.WithLogger(ctx, logger)

	d, err := openDaemon(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer d.close()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Error("listen failed", zap.Error(err))
		return 1
	}

	var opts []grpc.ServerOption
	opts = append(opts, grpc.UnaryInterceptor(ledgerrpc.UnaryServerInterceptor(logger.Named("rpc"))))
	if cfg.MaxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxMsgBytes), grpc.MaxSendMsgSize(cfg.MaxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	ledgerrpc.RegisterLedgerServer(s, &ledgerrpc.Server{Bank: d.bank, MaxAirdrop: cfg.MaxAirdrop})

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(lis) }()
	logger.Info("mintd listening",
		zap.String("addr", lis.Addr().String()),
		zap.String("store", cfg.Store),
		zap.Stringer("program_id", d.programID),
		zap.Uint64("slot", d.bank.Slot()),
	)

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		s.GracefulStop()
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("serve failed", zap.Error(err))
			code = 1
		}
	}

	// The serve context is done; the final snapshot gets its own.
	if err := d.writeSnapshot(context.WithoutCancel(ctx)); err != nil {
		logger.Error("snapshot failed", zap.Error(err))
		code = 1
	}
	return code
}
